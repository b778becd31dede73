package domain

import "time"

// User is a shopper registration record looked up by mobile.
type User struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	Name      string    `json:"name"`
	Mobile    string    `gorm:"uniqueIndex;size:10" json:"mobile"`
	CreatedAt time.Time `json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

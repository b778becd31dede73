package domain

import "time"

// Counter holds a named monotonic integer (orderId, userId).
type Counter struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Counter) TableName() string {
	return "counters"
}

const (
	CounterOrderID = "orderId"
	CounterUserID  = "userId"
)

package domain

import "time"

// NotificationLog records one outbound status message attempt.
type NotificationLog struct {
	ID        int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	OrderID   int64     `gorm:"index" json:"orderId"`
	Channel   string    `gorm:"size:32" json:"channel"`
	Phone     string    `json:"phone"`
	Status    string    `gorm:"size:16" json:"status"` // sent, failed, skipped
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (NotificationLog) TableName() string {
	return "notification_log"
}

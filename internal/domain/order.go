package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OrderStatusNew       = "NEW"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"

	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRefunded = "REFUNDED"
)

var OrderStatuses = []string{
	OrderStatusNew, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
}

var PaymentStatuses = []string{PaymentPending, PaymentPaid, PaymentRefunded}

func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ValidPaymentStatus(s string) bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// OrderItem is one line of an order. Duplicate product ids are separate lines.
type OrderItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
}

type Order struct {
	OrderID       int64                          `gorm:"primaryKey;autoIncrement:false" json:"orderId"`
	CustomerName  string                         `json:"customerName"`
	Phone         string                         `gorm:"index;size:32" json:"phone"`
	Address       string                         `json:"address"`
	City          string                         `json:"city"`
	Pincode       string                         `gorm:"size:16" json:"pincode"`
	Notes         string                         `json:"notes"`
	Items         datatypes.JSONSlice[OrderItem] `json:"items"`
	TotalAmount   int64                          `json:"totalAmount"`
	Status        string                         `gorm:"index;size:16" json:"status"`
	PaymentStatus string                         `gorm:"index;size:16" json:"paymentStatus"`
	CancelReason  string                         `json:"cancelReason,omitempty"`
	CancelledAt   *time.Time                     `json:"cancelledAt,omitempty"`
	AdminFeedback string                         `json:"adminFeedback,omitempty"`
	FeedbackAt    *time.Time                     `json:"feedbackAt,omitempty"`
	CreatedAt     time.Time                      `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time                      `json:"updatedAt"`

	FormattedDate string `gorm:"-" json:"formattedDate,omitempty"`
	FormattedTime string `gorm:"-" json:"formattedTime,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// ItemsTotal sums price x qty over the given lines.
func ItemsTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * it.Qty
	}
	return total
}

// PositiveItems drops lines whose qty is not positive.
func PositiveItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		if it.Qty > 0 {
			out = append(out, it)
		}
	}
	return out
}

package domain

import "time"

type Rating struct {
	ID           int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	OrderID      int64     `gorm:"index" json:"orderId"`
	ProductID    int64     `gorm:"index" json:"productId"`
	ProductName  string    `json:"productName"`
	CustomerName string    `json:"customerName"`
	Phone        string    `json:"phone"`
	Rating       int       `json:"rating"`
	Review       string    `json:"review"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

func (Rating) TableName() string {
	return "ratings"
}

// RatingAggregate summarizes the ratings of one product.
type RatingAggregate struct {
	AvgRating     float64        `json:"avgRating"`
	Count         int            `json:"count"`
	RecentReviews []RecentReview `json:"recentReviews,omitempty"`
}

type RecentReview struct {
	CustomerName string    `json:"customerName"`
	Rating       int       `json:"rating"`
	Review       string    `json:"review"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FeedbackScreenshot is a curated testimonial shown on the shop page.
type FeedbackScreenshot struct {
	ID           int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	ImageURL     string    `gorm:"size:1024" json:"imageUrl"`
	Caption      string    `json:"caption"`
	CustomerName string    `json:"customerName"`
	Active       bool      `json:"active"`
	Order        int       `gorm:"column:sort_order;index" json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (FeedbackScreenshot) TableName() string {
	return "feedback_screenshots"
}

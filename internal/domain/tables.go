package domain

var Tables = []interface{}{
	&Counter{},
	// Catalog
	&ProductOverride{},
	// Orders
	&Order{},
	&NotificationLog{},
	// Customers
	&User{},
	&Rating{},
	&FeedbackScreenshot{},
}

package domain

import "time"

// CatalogItem is a static product shipped with the application.
type CatalogItem struct {
	ID          int64  `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Price       int64  `yaml:"price" json:"price"`
	Image       string `yaml:"image" json:"image"`
	Description string `yaml:"description" json:"description"`
}

// Product is the effective product served to clients.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       int64  `json:"price"`
	Available   bool   `json:"available"`
	InStock     bool   `json:"inStock"`
	IsCustom    bool   `json:"isCustom"`
}

// ProductOverride is a sparse patch over a catalog entry, or a custom
// product when IsCustom is set. Nil fields fall back to catalog values.
type ProductOverride struct {
	ProductID   int64     `gorm:"primaryKey;autoIncrement:false" json:"productId"`
	Name        *string   `json:"name,omitempty"`
	Category    *string   `gorm:"index" json:"category,omitempty"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `gorm:"size:1024" json:"image,omitempty"`
	Price       *int64    `json:"price,omitempty"`
	Available   *bool     `json:"available,omitempty"`
	InStock     *bool     `json:"inStock,omitempty"`
	IsCustom    bool      `gorm:"index" json:"isCustom"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (ProductOverride) TableName() string {
	return "product_overrides"
}

// ProductPatch carries the fields named in an override request.
type ProductPatch struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Price       *int64  `json:"price"`
	Available   *bool   `json:"available"`
	InStock     *bool   `json:"inStock"`
}

// Empty reports whether no field was supplied.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Description == nil && p.Image == nil &&
		p.Price == nil && p.Available == nil && p.InStock == nil
}

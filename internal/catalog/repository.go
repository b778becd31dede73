package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/urbangulal/urbangulal/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OverrideRepository persists product override patches.
type OverrideRepository interface {
	List(ctx context.Context) ([]domain.ProductOverride, error)
	Get(ctx context.Context, id int64) (*domain.ProductOverride, error)
	// Upsert writes only the fields present in patch.
	Upsert(ctx context.Context, id int64, patch domain.ProductPatch) error
	// CreateIfAbsent inserts o unless the id is taken; it reports whether a row was written.
	CreateIfAbsent(ctx context.Context, o *domain.ProductOverride) (bool, error)
	MaxID(ctx context.Context) (int64, error)
	Transaction(ctx context.Context, fn func(repo OverrideRepository) error) error
}

type GormOverrideRepository struct {
	db *gorm.DB
}

func NewGormOverrideRepository(db *gorm.DB) *GormOverrideRepository {
	return &GormOverrideRepository{db: db}
}

func (r *GormOverrideRepository) List(ctx context.Context) ([]domain.ProductOverride, error) {
	var rows []domain.ProductOverride
	err := r.db.WithContext(ctx).Order("created_at ASC, product_id ASC").Find(&rows).Error
	return rows, err
}

func (r *GormOverrideRepository) Get(ctx context.Context, id int64) (*domain.ProductOverride, error) {
	var o domain.ProductOverride
	err := r.db.WithContext(ctx).Where("product_id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOverrideRepository) Upsert(ctx context.Context, id int64, patch domain.ProductPatch) error {
	now := time.Now()
	row := domain.ProductOverride{
		ProductID:   id,
		Name:        patch.Name,
		Category:    patch.Category,
		Description: patch.Description,
		Image:       patch.Image,
		Price:       patch.Price,
		Available:   patch.Available,
		InStock:     patch.InStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cols := []string{"updated_at"}
	if patch.Name != nil {
		cols = append(cols, "name")
	}
	if patch.Category != nil {
		cols = append(cols, "category")
	}
	if patch.Description != nil {
		cols = append(cols, "description")
	}
	if patch.Image != nil {
		cols = append(cols, "image")
	}
	if patch.Price != nil {
		cols = append(cols, "price")
	}
	if patch.Available != nil {
		cols = append(cols, "available")
	}
	if patch.InStock != nil {
		cols = append(cols, "in_stock")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&row).Error
}

func (r *GormOverrideRepository) CreateIfAbsent(ctx context.Context, o *domain.ProductOverride) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(o)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormOverrideRepository) MaxID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&domain.ProductOverride{}).
		Select("COALESCE(MAX(product_id), 0)").Scan(&max).Error
	return max, err
}

func (r *GormOverrideRepository) Transaction(ctx context.Context, fn func(repo OverrideRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormOverrideRepository{db: tx})
	})
}

package orders

import (
	"context"
	"errors"
	"time"

	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/store"
	"gorm.io/gorm"
)

// Filter narrows ListOrders. Zero values match everything.
type Filter struct {
	Status        string
	PaymentStatus string
	From          time.Time
	To            time.Time
}

type Repository interface {
	// Insert assigns the next order id and stores o in one transaction.
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	// Update applies fn to the stored order under a transaction and saves the result.
	Update(ctx context.Context, id int64, fn func(o *domain.Order) error) (*domain.Order, error)
	List(ctx context.Context, f Filter) ([]domain.Order, error)
	FindByPhone(ctx context.Context, exact, suffix string) ([]domain.Order, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Insert(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := store.NextSequence(ctx, tx, domain.CounterOrderID)
		if err != nil {
			return err
		}
		o.OrderID = id
		return tx.Create(o).Error
	})
}

func (r *GormRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Where("order_id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepository) Update(ctx context.Context, id int64, fn func(o *domain.Order) error) (*domain.Order, error) {
	var out domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o domain.Order
		err := tx.Where("order_id = ?", id).First(&o).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("order", id)
		}
		if err != nil {
			return err
		}
		if err := fn(&o); err != nil {
			return err
		}
		o.UpdatedAt = time.Now()
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *GormRepository) List(ctx context.Context, f Filter) ([]domain.Order, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	rows := make([]domain.Order, 0)
	err := q.Order("created_at DESC, order_id DESC").Find(&rows).Error
	return rows, err
}

func (r *GormRepository) FindByPhone(ctx context.Context, exact, suffix string) ([]domain.Order, error) {
	q := r.db.WithContext(ctx).Where("phone = ?", exact)
	if suffix != "" {
		q = q.Or("phone LIKE ?", "%"+suffix)
	}
	rows := make([]domain.Order, 0)
	err := q.Order("created_at DESC, order_id DESC").Find(&rows).Error
	return rows, err
}

// OrdersBetween returns orders created in [from, to), oldest first.
func (r *GormRepository) OrdersBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	rows := make([]domain.Order, 0)
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC, order_id ASC").Find(&rows).Error
	return rows, err
}

// AllOrders returns every order, oldest first.
func (r *GormRepository) AllOrders(ctx context.Context) ([]domain.Order, error) {
	rows := make([]domain.Order, 0)
	err := r.db.WithContext(ctx).Order("created_at ASC, order_id ASC").Find(&rows).Error
	return rows, err
}

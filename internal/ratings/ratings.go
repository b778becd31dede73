package ratings

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MinRating     = 1
	MaxRating     = 5
	recentReviews = 5
)

type RatingInput struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Rating      int    `json:"rating"`
	Review      string `json:"review"`
}

type SubmitInput struct {
	OrderID      int64         `json:"orderId"`
	CustomerName string        `json:"customerName"`
	Phone        string        `json:"phone"`
	Ratings      []RatingInput `json:"ratings"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SubmitRatings stores one row per entry. Resubmission is not blocked here.
func (s *Service) SubmitRatings(ctx context.Context, in SubmitInput) ([]domain.Rating, error) {
	if in.OrderID <= 0 {
		return nil, domain.Invalid("Order id is required")
	}
	if len(in.Ratings) == 0 {
		return nil, domain.Invalid("At least one rating is required")
	}
	for _, r := range in.Ratings {
		if r.Rating < MinRating || r.Rating > MaxRating {
			return nil, domain.Invalid("Rating must be between %d and %d", MinRating, MaxRating)
		}
	}

	now := time.Now()
	rows := make([]domain.Rating, 0, len(in.Ratings))
	for i, r := range in.Ratings {
		rows = append(rows, domain.Rating{
			ID:           common.UUIDint64(),
			OrderID:      in.OrderID,
			ProductID:    r.ProductID,
			ProductName:  strings.TrimSpace(r.ProductName),
			CustomerName: strings.TrimSpace(in.CustomerName),
			Phone:        strings.TrimSpace(in.Phone),
			Rating:       r.Rating,
			Review:       strings.TrimSpace(r.Review),
			CreatedAt:    now.Add(time.Duration(i) * time.Microsecond),
		})
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	}); err != nil {
		return nil, errors.Wrap(err, "save ratings")
	}
	zap.L().Info("ratings submitted", zap.Int64("order_id", in.OrderID), zap.Int("count", len(rows)))
	return rows, nil
}

// ForOrder returns the ratings already stored for an order.
func (s *Service) ForOrder(ctx context.Context, orderID int64) ([]domain.Rating, error) {
	rows := make([]domain.Rating, 0)
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "order ratings")
	}
	return rows, nil
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	rounded, err := stats.Round(mean, 1)
	if err != nil {
		return mean
	}
	return rounded
}

// ProductAggregate returns the rounded mean and count for one product.
func (s *Service) ProductAggregate(ctx context.Context, productID int64) (*domain.RatingAggregate, error) {
	var values []float64
	err := s.db.WithContext(ctx).Model(&domain.Rating{}).
		Where("product_id = ?", productID).Pluck("rating", &values).Error
	if err != nil {
		return nil, errors.Wrap(err, "product ratings")
	}
	return &domain.RatingAggregate{AvgRating: average(values), Count: len(values)}, nil
}

// AllAggregates aggregates every product in one pass and keeps the most
// recent reviews that carry text.
func (s *Service) AllAggregates(ctx context.Context) (map[int64]*domain.RatingAggregate, error) {
	var rows []domain.Rating
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "all ratings")
	}
	values := make(map[int64][]float64)
	out := make(map[int64]*domain.RatingAggregate)
	for _, r := range rows {
		agg, ok := out[r.ProductID]
		if !ok {
			agg = &domain.RatingAggregate{RecentReviews: []domain.RecentReview{}}
			out[r.ProductID] = agg
		}
		values[r.ProductID] = append(values[r.ProductID], float64(r.Rating))
		if r.Review != "" && len(agg.RecentReviews) < recentReviews {
			agg.RecentReviews = append(agg.RecentReviews, domain.RecentReview{
				CustomerName: r.CustomerName,
				Rating:       r.Rating,
				Review:       r.Review,
				CreatedAt:    r.CreatedAt,
			})
		}
	}
	for id, agg := range out {
		agg.Count = len(values[id])
		agg.AvgRating = average(values[id])
		sort.SliceStable(agg.RecentReviews, func(i, j int) bool {
			return agg.RecentReviews[i].CreatedAt.After(agg.RecentReviews[j].CreatedAt)
		})
	}
	return out, nil
}

package ratings

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ScreenshotInput struct {
	ImageURL     *string `json:"imageUrl"`
	Caption      *string `json:"caption"`
	CustomerName *string `json:"customerName"`
	Active       *bool   `json:"active"`
	Order        *int    `json:"order"`
}

// Screenshots manages curated testimonial images.
type Screenshots struct {
	db *gorm.DB
}

func NewScreenshots(db *gorm.DB) *Screenshots {
	return &Screenshots{db: db}
}

func (s *Screenshots) list(ctx context.Context, activeOnly bool) ([]domain.FeedbackScreenshot, error) {
	q := s.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	rows := make([]domain.FeedbackScreenshot, 0)
	if err := q.Order("sort_order ASC, created_at DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list screenshots")
	}
	return rows, nil
}

// ListActive returns what shoppers see.
func (s *Screenshots) ListActive(ctx context.Context) ([]domain.FeedbackScreenshot, error) {
	return s.list(ctx, true)
}

// ListAll returns every entry for the admin console.
func (s *Screenshots) ListAll(ctx context.Context) ([]domain.FeedbackScreenshot, error) {
	return s.list(ctx, false)
}

func (s *Screenshots) Get(ctx context.Context, id int64) (*domain.FeedbackScreenshot, error) {
	var row domain.FeedbackScreenshot
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("screenshot", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get screenshot")
	}
	return &row, nil
}

func (s *Screenshots) Create(ctx context.Context, in ScreenshotInput) (*domain.FeedbackScreenshot, error) {
	if in.ImageURL == nil || common.IsEmpty(*in.ImageURL) {
		return nil, domain.Invalid("Image URL is required")
	}
	now := time.Now()
	row := domain.FeedbackScreenshot{
		ID:        common.UUIDint64(),
		ImageURL:  strings.TrimSpace(*in.ImageURL),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Caption != nil {
		row.Caption = strings.TrimSpace(*in.Caption)
	}
	if in.CustomerName != nil {
		row.CustomerName = strings.TrimSpace(*in.CustomerName)
	}
	if in.Active != nil {
		row.Active = *in.Active
	}
	if in.Order != nil {
		row.Order = *in.Order
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "create screenshot")
	}
	zap.L().Info("feedback screenshot created", zap.Int64("id", row.ID))
	return &row, nil
}

func (s *Screenshots) Update(ctx context.Context, id int64, in ScreenshotInput) (*domain.FeedbackScreenshot, error) {
	updates := map[string]interface{}{}
	if in.ImageURL != nil {
		if common.IsEmpty(*in.ImageURL) {
			return nil, domain.Invalid("Image URL must not be empty")
		}
		updates["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.Caption != nil {
		updates["caption"] = strings.TrimSpace(*in.Caption)
	}
	if in.CustomerName != nil {
		updates["customer_name"] = strings.TrimSpace(*in.CustomerName)
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}
	if in.Order != nil {
		updates["sort_order"] = *in.Order
	}
	if len(updates) == 0 {
		return nil, domain.Invalid("No fields to update")
	}
	updates["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).Model(&domain.FeedbackScreenshot{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "update screenshot")
	}
	if res.RowsAffected == 0 {
		return nil, domain.NotFound("screenshot", id)
	}
	return s.Get(ctx, id)
}

func (s *Screenshots) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.FeedbackScreenshot{})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete screenshot")
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("screenshot", id)
	}
	return nil
}

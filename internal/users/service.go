package users

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var mobileRe = regexp.MustCompile(`^\d{10}$`)

// ValidMobile reports whether s is exactly ten digits.
func ValidMobile(s string) bool {
	return mobileRe.MatchString(s)
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Register creates a user record. The mobile must be ten digits and unused.
func (s *Service) Register(ctx context.Context, name, mobile string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	mobile = strings.TrimSpace(mobile)
	if name == "" || mobile == "" {
		return nil, domain.Invalid("Name and mobile are required")
	}
	if !ValidMobile(mobile) {
		return nil, domain.Invalid("Please enter valid 10-digit mobile number")
	}

	var u domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("mobile = ?", mobile).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.Conflict("Mobile number already registered")
		}
		id, err := store.NextSequence(ctx, tx, domain.CounterUserID)
		if err != nil {
			return err
		}
		u = domain.User{UserID: id, Name: name, Mobile: mobile, CreatedAt: time.Now()}
		return tx.Create(&u).Error
	})
	if err != nil {
		if domain.IsConflict(err) {
			return nil, err
		}
		// lost a race on the unique index
		if s.mobileTaken(ctx, mobile) {
			return nil, domain.Conflict("Mobile number already registered")
		}
		return nil, pkgerrors.Wrap(err, "register user")
	}
	zap.L().Info("user registered", zap.Int64("user_id", u.UserID))
	return &u, nil
}

func (s *Service) mobileTaken(ctx context.Context, mobile string) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("mobile = ?", mobile).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// Login looks a user up by mobile.
func (s *Service) Login(ctx context.Context, mobile string) (*domain.User, error) {
	mobile = strings.TrimSpace(mobile)
	if !ValidMobile(mobile) {
		return nil, domain.Invalid("Please enter valid 10-digit mobile number")
	}
	var u domain.User
	err := s.db.WithContext(ctx).Where("mobile = ?", mobile).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user", mobile)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "login")
	}
	return &u, nil
}

// List returns all users, newest first.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	rows := make([]domain.User, 0)
	if err := s.db.WithContext(ctx).Order("created_at DESC, user_id DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list users")
	}
	return rows, nil
}

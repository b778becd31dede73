package notify

import (
	"context"
	"errors"
	"time"

	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/orders"
	"github.com/urbangulal/urbangulal/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ChannelWhatsApp = "whatsapp"

	LogSent    = "sent"
	LogFailed  = "failed"
	LogSkipped = "skipped"
)

var ErrNoChannel = errors.New("no notification channel available")

// Sender delivers a text to an international phone number (digits only).
type Sender interface {
	SendText(ctx context.Context, phone, text string) error
}

type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher sends status messages best-effort and records every attempt.
type Dispatcher struct {
	db       *gorm.DB
	sender   Sender
	composer Composer
	mailer   *Mailer
	timeout  time.Duration
}

func NewDispatcher(db *gorm.DB, sender Sender, composer Composer, mailer *Mailer) *Dispatcher {
	return &Dispatcher{db: db, sender: sender, composer: composer, mailer: mailer, timeout: 30 * time.Second}
}

func (d *Dispatcher) Composer() Composer {
	return d.composer
}

// Dispatch never returns an error; failures are reported in Result and logged.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID int64, phone, msg string) Result {
	entry := domain.NotificationLog{
		ID:      common.UUIDint64(),
		OrderID: orderID,
		Channel: ChannelWhatsApp,
		Phone:   phone,
		Message: msg,
	}
	var res Result
	switch {
	case d.sender == nil:
		entry.Status = LogSkipped
		entry.Error = ErrNoChannel.Error()
		res = Result{Error: entry.Error}
	case common.IsEmpty(phone):
		entry.Status = LogSkipped
		entry.Error = "empty phone"
		res = Result{Error: entry.Error}
	default:
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.sender.SendText(sctx, common.IntlDigits(phone, d.composer.CountryCode), msg)
		cancel()
		if err != nil {
			entry.Status = LogFailed
			entry.Error = err.Error()
			res = Result{Error: err.Error()}
			zap.L().Warn("notify: send failed", zap.Int64("order_id", orderID), zap.Error(err))
		} else {
			entry.Status = LogSent
			res = Result{Success: true}
		}
	}
	if d.db != nil {
		if err := d.db.WithContext(ctx).Create(&entry).Error; err != nil {
			zap.L().Warn("notify: write notification log", zap.Error(err))
		}
	}
	return res
}

// NotifyStatus sends the message for the order's current status.
func (d *Dispatcher) NotifyStatus(ctx context.Context, o domain.Order) Result {
	return d.Dispatch(ctx, o.OrderID, o.Phone, d.composer.StatusMessage(o, o.Status))
}

// Logs lists attempts for one order, newest first.
func (d *Dispatcher) Logs(ctx context.Context, orderID int64) ([]domain.NotificationLog, error) {
	var rows []domain.NotificationLog
	err := d.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// Subscribe wires the dispatcher to committed order events: every new order
// and every status change sends a customer message, new orders also alert
// the admin mailbox.
func (d *Dispatcher) Subscribe(hooks *orders.Hooks) error {
	if err := hooks.OnCreated("notify-customer", func(ev orders.OrderEvent) {
		d.NotifyStatus(context.Background(), ev.Order)
		if d.mailer != nil {
			if err := d.mailer.NewOrderAlert(ev.Order); err != nil {
				zap.L().Warn("notify: admin mail failed", zap.Int64("order_id", ev.Order.OrderID), zap.Error(err))
			}
		}
	}); err != nil {
		return err
	}
	return hooks.OnUpdated("notify-customer", func(ev orders.OrderEvent) {
		if !ev.StatusChanged {
			return
		}
		d.NotifyStatus(context.Background(), ev.Order)
	})
}

package orders

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/pkg/common"
	"go.uber.org/zap"
)

const (
	ItemsModeReplace = "replace"
	ItemsModeAppend  = "append"

	HistoryDateFmt = "02 Jan 2006"
	HistoryTimeFmt = "03:04 PM"
)

type CreateOrderInput struct {
	CustomerName  string             `json:"customerName"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	Pincode       string             `json:"pincode"`
	Notes         string             `json:"notes"`
	Items         []domain.OrderItem `json:"items"`
	TotalAmount   *int64             `json:"totalAmount"`
	CreatedAt     string             `json:"createdAt"`
	Status        string             `json:"status"`
	PaymentStatus string             `json:"paymentStatus"`
}

// UpdateOrderInput is a partial update; nil fields are left untouched.
type UpdateOrderInput struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
	CancelReason  *string `json:"cancelReason"`
	CancelledAt   *string `json:"cancelledAt"`
	AdminFeedback *string `json:"adminFeedback"`
	FeedbackAt    *string `json:"feedbackAt"`
}

func (in UpdateOrderInput) empty() bool {
	return in.Status == nil && in.PaymentStatus == nil && in.CancelReason == nil &&
		in.CancelledAt == nil && in.AdminFeedback == nil && in.FeedbackAt == nil
}

type Service struct {
	repo  Repository
	hooks *Hooks
}

func NewService(repo Repository, hooks *Hooks) *Service {
	return &Service{repo: repo, hooks: hooks}
}

func (s *Service) Hooks() *Hooks {
	return s.hooks
}

func validateItems(items []domain.OrderItem) error {
	for _, it := range items {
		if it.Price < 0 {
			return domain.Invalid("Item price must not be negative")
		}
		if strings.TrimSpace(it.Name) == "" {
			return domain.Invalid("Item name is required")
		}
	}
	return nil
}

// ParseTime reads a caller supplied timestamp in the local zone.
func ParseTime(field, value string) (time.Time, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, domain.Invalid("Invalid %s", field)
	}
	return t.In(time.Local), nil
}

// CreateOrder validates and stores a new order, then fires the created hooks.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if common.IsEmpty(in.CustomerName) || common.IsEmpty(in.Phone) || common.IsEmpty(in.Address) || len(in.Items) == 0 {
		return nil, domain.Invalid("Missing required fields")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	items := domain.PositiveItems(in.Items)
	if len(items) == 0 {
		return nil, domain.Invalid("Order must contain at least one item")
	}

	status := common.IfEmptyStr(in.Status, domain.OrderStatusNew)
	if !domain.ValidOrderStatus(status) {
		return nil, domain.Invalid("Invalid status %s", status)
	}
	payment := common.IfEmptyStr(in.PaymentStatus, domain.PaymentPending)
	if !domain.ValidPaymentStatus(payment) {
		return nil, domain.Invalid("Invalid payment status %s", payment)
	}

	createdAt := time.Now()
	if !common.IsEmpty(in.CreatedAt) {
		t, err := ParseTime("createdAt", in.CreatedAt)
		if err != nil {
			return nil, err
		}
		createdAt = t
	}

	total := domain.ItemsTotal(items)
	if in.TotalAmount != nil {
		if *in.TotalAmount < 0 {
			return nil, domain.Invalid("Total amount must not be negative")
		}
		total = *in.TotalAmount
	}

	o := &domain.Order{
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		City:          strings.TrimSpace(in.City),
		Pincode:       strings.TrimSpace(in.Pincode),
		Notes:         strings.TrimSpace(in.Notes),
		Items:         items,
		TotalAmount:   total,
		Status:        status,
		PaymentStatus: payment,
		CreatedAt:     createdAt,
		UpdatedAt:     time.Now(),
	}
	if err := s.repo.Insert(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	zap.L().Info("order created",
		zap.Int64("order_id", o.OrderID),
		zap.Int("items", len(o.Items)),
		zap.Int64("total", o.TotalAmount))

	s.hooks.publish(OrderEvent{Topic: TopicOrderCreated, Order: *o, StatusChanged: true})
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// UpdateOrder applies the supplied fields. Any enumerated status is
// accepted regardless of the current one.
func (s *Service) UpdateOrder(ctx context.Context, id int64, in UpdateOrderInput) (*domain.Order, error) {
	if in.empty() {
		return nil, domain.Invalid("No fields to update")
	}
	if in.Status != nil && !domain.ValidOrderStatus(*in.Status) {
		return nil, domain.Invalid("Invalid status %s", *in.Status)
	}
	if in.PaymentStatus != nil && !domain.ValidPaymentStatus(*in.PaymentStatus) {
		return nil, domain.Invalid("Invalid payment status %s", *in.PaymentStatus)
	}
	var cancelledAt, feedbackAt *time.Time
	if in.CancelledAt != nil && !common.IsEmpty(*in.CancelledAt) {
		t, err := ParseTime("cancelledAt", *in.CancelledAt)
		if err != nil {
			return nil, err
		}
		cancelledAt = &t
	}
	if in.FeedbackAt != nil && !common.IsEmpty(*in.FeedbackAt) {
		t, err := ParseTime("feedbackAt", *in.FeedbackAt)
		if err != nil {
			return nil, err
		}
		feedbackAt = &t
	}

	return s.update(ctx, id, func(o *domain.Order) {
		if in.Status != nil {
			o.Status = *in.Status
		}
		if in.PaymentStatus != nil {
			o.PaymentStatus = *in.PaymentStatus
		}
		if in.CancelReason != nil {
			o.CancelReason = strings.TrimSpace(*in.CancelReason)
		}
		if in.CancelledAt != nil {
			o.CancelledAt = cancelledAt
		}
		if in.AdminFeedback != nil {
			o.AdminFeedback = strings.TrimSpace(*in.AdminFeedback)
		}
		if in.FeedbackAt != nil {
			o.FeedbackAt = feedbackAt
		}
	})
}

// CancelOrder marks the order cancelled with a reason and stamps the time.
func (s *Service) CancelOrder(ctx context.Context, id int64, reason string) (*domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.Invalid("Cancel reason is required")
	}
	now := time.Now()
	return s.update(ctx, id, func(o *domain.Order) {
		o.Status = domain.OrderStatusCancelled
		o.CancelReason = reason
		o.CancelledAt = &now
	})
}

func (s *Service) update(ctx context.Context, id int64, mutate func(o *domain.Order)) (*domain.Order, error) {
	var prev string
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		prev = o.Status
		mutate(o)
		return nil
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update order")
	}
	changed := prev != o.Status
	zap.L().Info("order updated",
		zap.Int64("order_id", o.OrderID),
		zap.String("status", o.Status),
		zap.String("payment_status", o.PaymentStatus),
		zap.Bool("status_changed", changed))

	s.hooks.publish(OrderEvent{Topic: TopicOrderUpdated, Order: *o, PrevStatus: prev, StatusChanged: changed})
	return o, nil
}

// ReplaceOrderItems sets the order lines and recomputes the total. Mode
// "replace" discards the current lines; any other mode appends to them.
// Lines are never merged by product id.
func (s *Service) ReplaceOrderItems(ctx context.Context, id int64, items []domain.OrderItem, mode string) (*domain.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	o, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		var next []domain.OrderItem
		if mode == ItemsModeReplace {
			next = items
		} else {
			next = append(append([]domain.OrderItem{}, o.Items...), items...)
		}
		next = domain.PositiveItems(next)
		if len(next) == 0 {
			return domain.Invalid("Order must contain at least one item")
		}
		o.Items = next
		o.TotalAmount = domain.ItemsTotal(next)
		return nil
	})
	if err != nil {
		if domain.IsNotFound(err) || domain.IsValidation(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update order items")
	}
	zap.L().Info("order items updated",
		zap.Int64("order_id", o.OrderID),
		zap.String("mode", mode),
		zap.Int("items", len(o.Items)),
		zap.Int64("total", o.TotalAmount))

	s.hooks.publish(OrderEvent{Topic: TopicOrderUpdated, Order: *o, PrevStatus: o.Status, ItemsChanged: true})
	return o, nil
}

// GetOrderHistory matches the phone exactly or on its trailing ten digits,
// newest first, with display date and time filled in.
func (s *Service) GetOrderHistory(ctx context.Context, phone string) ([]domain.Order, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, domain.Invalid("Phone is required")
	}
	suffix := common.LastDigits(phone, 10)
	if len(suffix) < 10 {
		suffix = ""
	}
	rows, err := s.repo.FindByPhone(ctx, phone, suffix)
	if err != nil {
		return nil, errors.Wrap(err, "order history")
	}
	for i := range rows {
		local := rows[i].CreatedAt.In(time.Local)
		rows[i].FormattedDate = local.Format(HistoryDateFmt)
		rows[i].FormattedTime = local.Format(HistoryTimeFmt)
	}
	return rows, nil
}

type ListInput struct {
	Status        string
	PaymentStatus string
	Date          string
}

// ListOrders returns orders newest first, optionally filtered.
func (s *Service) ListOrders(ctx context.Context, in ListInput) ([]domain.Order, error) {
	var f Filter
	if in.Status != "" && !strings.EqualFold(in.Status, "ALL") {
		if !domain.ValidOrderStatus(in.Status) {
			return nil, domain.Invalid("Invalid status %s", in.Status)
		}
		f.Status = in.Status
	}
	if in.PaymentStatus != "" && !strings.EqualFold(in.PaymentStatus, "ALL") {
		if !domain.ValidPaymentStatus(in.PaymentStatus) {
			return nil, domain.Invalid("Invalid payment status %s", in.PaymentStatus)
		}
		f.PaymentStatus = in.PaymentStatus
	}
	if in.Date != "" {
		day, err := ParseTime("date", in.Date)
		if err != nil {
			return nil, err
		}
		f.From = common.StartOfDay(day)
		f.To = f.From.AddDate(0, 0, 1)
	}
	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return rows, nil
}

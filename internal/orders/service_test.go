package orders

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/storetest"
)

func newTestService(t *testing.T) *Service {
	return NewService(NewGormRepository(storetest.NewDB(t)), NewHooks())
}

func ptr[T any](v T) *T { return &v }

func rajOrder() CreateOrderInput {
	return CreateOrderInput{
		CustomerName: "Raj",
		Phone:        "9000000000",
		Address:      "X",
		Items:        []domain.OrderItem{{Name: "Diya", Price: 100, Qty: 2}},
		TotalAmount:  ptr(int64(200)),
	}
}

func TestCreateOrderDefaults(t *testing.T) {
	s := newTestService(t)
	o, err := s.CreateOrder(context.Background(), rajOrder())
	require.NoError(t, err)

	assert.EqualValues(t, 1, o.OrderID)
	assert.Equal(t, domain.OrderStatusNew, o.Status)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.EqualValues(t, 200, o.TotalAmount)
	assert.Equal(t, "", o.City)
	assert.WithinDuration(t, time.Now(), o.CreatedAt, 5*time.Second)

	got, err := s.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Diya", got.Items[0].Name)
}

func TestCreateOrderTrustsSuppliedTotal(t *testing.T) {
	s := newTestService(t)
	in := rajOrder()
	in.TotalAmount = ptr(int64(150))
	o, err := s.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.EqualValues(t, 150, o.TotalAmount)

	in.TotalAmount = nil
	o, err = s.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.EqualValues(t, 200, o.TotalAmount)
}

func TestCreateOrderValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for name, mutate := range map[string]func(*CreateOrderInput){
		"no name":     func(in *CreateOrderInput) { in.CustomerName = " " },
		"no phone":    func(in *CreateOrderInput) { in.Phone = "" },
		"no address":  func(in *CreateOrderInput) { in.Address = "" },
		"no items":    func(in *CreateOrderInput) { in.Items = nil },
		"zero qty":    func(in *CreateOrderInput) { in.Items = []domain.OrderItem{{Name: "Diya", Price: 10}} },
		"bad status":  func(in *CreateOrderInput) { in.Status = "LOST" },
		"bad payment": func(in *CreateOrderInput) { in.PaymentStatus = "MAYBE" },
		"bad date":    func(in *CreateOrderInput) { in.CreatedAt = "yesterday-ish" },
		"neg price":   func(in *CreateOrderInput) { in.Items[0].Price = -1 },
	} {
		in := rajOrder()
		in.Items = append([]domain.OrderItem{}, in.Items...)
		mutate(&in)
		_, err := s.CreateOrder(ctx, in)
		assert.True(t, domain.IsValidation(err), name)
	}

	// failed validation never consumes an id
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)
	assert.EqualValues(t, 1, o.OrderID)
}

func TestCreateOrderBackdated(t *testing.T) {
	s := newTestService(t)
	in := rajOrder()
	in.CreatedAt = "2024-01-15T10:30:00+05:30"
	in.Status = domain.OrderStatusDelivered
	in.PaymentStatus = domain.PaymentPaid
	o, err := s.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	want := time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC)
	assert.True(t, want.Equal(o.CreatedAt), o.CreatedAt.String())
	assert.Equal(t, domain.OrderStatusDelivered, o.Status)
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)
}

func TestCreateOrderConcurrentIDs(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	const n = 25

	var (
		mu  sync.Mutex
		ids []int64
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := s.CreateOrder(ctx, rajOrder())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids = append(ids, o.OrderID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, n)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.EqualValues(t, i+1, id)
	}
}

func TestUpdateOrderPartial(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)

	u, err := s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{PaymentStatus: ptr(domain.PaymentPaid)})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, u.PaymentStatus)
	assert.Equal(t, domain.OrderStatusNew, u.Status)

	u, err = s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{
		AdminFeedback: ptr("Packed with care"),
		FeedbackAt:    ptr("2024-02-01 09:00:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Packed with care", u.AdminFeedback)
	require.NotNil(t, u.FeedbackAt)
	assert.Equal(t, domain.PaymentPaid, u.PaymentStatus)
	assert.Equal(t, "Raj", u.CustomerName)
}

func TestUpdateOrderIsPermissive(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)

	// cancellation without a reason is accepted on the generic update
	u, err := s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{Status: ptr(domain.OrderStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, u.Status)
	assert.Nil(t, u.CancelledAt)

	// and a terminal order can be moved again
	u, err = s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{Status: ptr(domain.OrderStatusNew)})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusNew, u.Status)
}

func TestUpdateOrderErrors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)

	_, err = s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{})
	assert.True(t, domain.IsValidation(err))

	_, err = s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{Status: ptr("LOST")})
	assert.True(t, domain.IsValidation(err))

	_, err = s.UpdateOrder(ctx, 999, UpdateOrderInput{Status: ptr(domain.OrderStatusShipped)})
	assert.True(t, domain.IsNotFound(err))

	_, err = s.GetOrder(ctx, 999)
	assert.True(t, domain.IsNotFound(err))
}

func TestCancelOrder(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)

	_, err = s.CancelOrder(ctx, o.OrderID, "  ")
	assert.True(t, domain.IsValidation(err))

	c, err := s.CancelOrder(ctx, o.OrderID, "Customer request")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, c.Status)
	assert.Equal(t, "Customer request", c.CancelReason)
	require.NotNil(t, c.CancelledAt)
	assert.WithinDuration(t, time.Now(), *c.CancelledAt, 5*time.Second)

	_, err = s.CancelOrder(ctx, 404, "x")
	assert.True(t, domain.IsNotFound(err))
}

func TestReplaceOrderItems(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)

	items := []domain.OrderItem{{ID: 3, Name: "Thali", Price: 300, Qty: 1}, {ID: 7, Name: "Holder", Price: 50, Qty: 0}}
	u, err := s.ReplaceOrderItems(ctx, o.OrderID, items, ItemsModeReplace)
	require.NoError(t, err)
	require.Len(t, u.Items, 1)
	assert.EqualValues(t, 300, u.TotalAmount)

	// resubmitting the same list is idempotent
	u2, err := s.ReplaceOrderItems(ctx, o.OrderID, items, ItemsModeReplace)
	require.NoError(t, err)
	assert.Equal(t, u.Items, u2.Items)
	assert.Equal(t, u.TotalAmount, u2.TotalAmount)

	// append keeps duplicate product ids as separate lines
	u3, err := s.ReplaceOrderItems(ctx, o.OrderID, []domain.OrderItem{{ID: 3, Name: "Thali", Price: 300, Qty: 2}}, ItemsModeAppend)
	require.NoError(t, err)
	require.Len(t, u3.Items, 2)
	assert.EqualValues(t, 900, u3.TotalAmount)
}

func TestReplaceOrderItemsErrors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)

	_, err = s.ReplaceOrderItems(ctx, o.OrderID, []domain.OrderItem{{Name: "Diya", Price: 1, Qty: 0}}, ItemsModeReplace)
	assert.True(t, domain.IsValidation(err))

	_, err = s.ReplaceOrderItems(ctx, 55, []domain.OrderItem{{Name: "Diya", Price: 1, Qty: 1}}, ItemsModeReplace)
	assert.True(t, domain.IsNotFound(err))

	got, err := s.GetOrder(ctx, o.OrderID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1, "rejected edits leave the order untouched")
	assert.EqualValues(t, 200, got.TotalAmount)
}

func TestGetOrderHistory(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	first := rajOrder()
	first.Phone = "+91 9876543210"
	first.CreatedAt = time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	_, err := s.CreateOrder(ctx, first)
	require.NoError(t, err)

	second := rajOrder()
	second.Phone = "9876543210"
	_, err = s.CreateOrder(ctx, second)
	require.NoError(t, err)

	other := rajOrder()
	other.Phone = "9123456789"
	_, err = s.CreateOrder(ctx, other)
	require.NoError(t, err)

	rows, err := s.GetOrderHistory(ctx, "09876543210")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 2, rows[0].OrderID, "newest first")
	assert.EqualValues(t, 1, rows[1].OrderID)
	assert.NotEmpty(t, rows[0].FormattedDate)
	assert.NotEmpty(t, rows[0].FormattedTime)

	rows, err = s.GetOrderHistory(ctx, "0000")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListOrders(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	old := rajOrder()
	old.CreatedAt = "2024-03-01 10:00:00"
	_, err := s.CreateOrder(ctx, old)
	require.NoError(t, err)
	o2, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)
	_, err = s.UpdateOrder(ctx, o2.OrderID, UpdateOrderInput{Status: ptr(domain.OrderStatusShipped)})
	require.NoError(t, err)

	all, err := s.ListOrders(ctx, ListInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.EqualValues(t, 2, all[0].OrderID)

	shipped, err := s.ListOrders(ctx, ListInput{Status: domain.OrderStatusShipped})
	require.NoError(t, err)
	require.Len(t, shipped, 1)

	day, err := s.ListOrders(ctx, ListInput{Date: "2024-03-01"})
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.EqualValues(t, 1, day[0].OrderID)

	_, err = s.ListOrders(ctx, ListInput{Status: "LOST"})
	assert.True(t, domain.IsValidation(err))
}

func TestHooksFireAfterCommit(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []OrderEvent
	)
	record := func(ev OrderEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	require.NoError(t, s.Hooks().OnCreated("record", record))
	require.NoError(t, s.Hooks().OnUpdated("record", record))
	require.NoError(t, s.Hooks().OnCreated("explode", func(OrderEvent) { panic("boom") }))

	o, err := s.CreateOrder(ctx, rajOrder())
	require.NoError(t, err)
	_, err = s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{Status: ptr(domain.OrderStatusConfirmed)})
	require.NoError(t, err)
	_, err = s.UpdateOrder(ctx, o.OrderID, UpdateOrderInput{PaymentStatus: ptr(domain.PaymentPaid)})
	require.NoError(t, err)
	s.Hooks().Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	byTopic := map[string][]OrderEvent{}
	for _, ev := range events {
		byTopic[ev.Topic] = append(byTopic[ev.Topic], ev)
	}
	assert.Len(t, byTopic[TopicOrderCreated], 1)
	require.Len(t, byTopic[TopicOrderUpdated], 2)
	changed := 0
	for _, ev := range byTopic[TopicOrderUpdated] {
		if ev.StatusChanged {
			changed++
			assert.Equal(t, domain.OrderStatusNew, ev.PrevStatus)
			assert.Equal(t, domain.OrderStatusConfirmed, ev.Order.Status)
		}
	}
	assert.Equal(t, 1, changed)
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	s := newTestService(t)
	fired := false
	require.NoError(t, s.Hooks().OnUpdated("flag", func(OrderEvent) { fired = true }))
	_, err := s.UpdateOrder(context.Background(), 1, UpdateOrderInput{Status: ptr(domain.OrderStatusShipped)})
	require.Error(t, err)
	s.Hooks().Wait()
	assert.False(t, fired)
}

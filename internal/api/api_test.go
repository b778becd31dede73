package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbangulal/urbangulal/config"
	"github.com/urbangulal/urbangulal/internal/catalog"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/notify"
	"github.com/urbangulal/urbangulal/internal/orders"
	"github.com/urbangulal/urbangulal/internal/ratings"
	"github.com/urbangulal/urbangulal/internal/report"
	"github.com/urbangulal/urbangulal/internal/storetest"
	"github.com/urbangulal/urbangulal/internal/users"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testEnv struct {
	srv   *webserver.Server
	hooks *orders.Hooks
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWithSource(t, nil)
}

// newEnvWithSource feeds the report generator from src instead of the order store.
func newEnvWithSource(t *testing.T, src report.OrderSource) *testEnv {
	db := storetest.NewDB(t)
	cfg := *config.DefaultAppConfig
	cfg.Web.StaticDir = ""

	hooks := orders.NewHooks()
	repo := orders.NewGormRepository(db)
	if src == nil {
		src = repo
	}
	gen, err := report.NewGenerator(src, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(gen.Close)

	srv := webserver.NewServer(&cfg)
	Register(srv, Deps{
		Config:      &cfg,
		Catalog:     catalog.NewResolver(catalog.MustLoad(), catalog.NewGormOverrideRepository(db)),
		Orders:      orders.NewService(repo, hooks),
		Users:       users.NewService(db),
		Ratings:     ratings.NewService(db),
		Screenshots: ratings.NewScreenshots(db),
		Reports:     gen,
		Notifier:    notify.NewDispatcher(db, nil, notify.NewComposer(cfg.Shop.Name, cfg.Shop.CountryCode), nil),
	})
	return &testEnv{srv: srv, hooks: hooks}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.srv.Echo().ServeHTTP(rec, req)
	e.hooks.Wait()
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

const orderBody = `{"customerName":"Raj","phone":"9000000000","address":"12 Park Street","city":"Pune",
	"items":[{"id":1,"name":"Girl Haldi Kunku Set","price":250,"qty":2}],"totalAmount":500}`

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","shop":"Urban Gulal","whatsapp":"disabled"}`, rec.Body.String())
}

func TestProductsFlow(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []domain.Product
	decode(t, rec, &products)
	require.NotEmpty(t, products)

	rec = e.do(t, http.MethodPut, "/api/products/1", `{"available":false,"price":300}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var p domain.Product
	decode(t, rec, &p)
	assert.EqualValues(t, 300, p.Price)
	assert.False(t, p.Available)

	rec = e.do(t, http.MethodGet, "/api/products", "")
	var visible []domain.Product
	decode(t, rec, &visible)
	assert.Len(t, visible, len(products)-1)

	rec = e.do(t, http.MethodGet, "/api/products?includeHidden=true", "")
	var all []domain.Product
	decode(t, rec, &all)
	assert.Len(t, all, len(products))

	rec = e.do(t, http.MethodPut, "/api/products/9999", `{"price":10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Product not found","code":"NOT_FOUND"}`, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/api/products/2/price", `{"price":"450"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &p)
	assert.EqualValues(t, 450, p.Price)

	rec = e.do(t, http.MethodPut, "/api/products/2/price", `{"price":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomProductAndCategories(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/products", `{"name":"Rangoli Kit"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = e.do(t, http.MethodPost, "/api/products", `{"name":"Rangoli Kit","category":"Festive","price":199}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p domain.Product
	decode(t, rec, &p)
	assert.True(t, p.IsCustom)
	assert.True(t, p.Available)
	assert.Greater(t, p.ID, int64(39))

	rec = e.do(t, http.MethodGet, "/api/categories", "")
	var cats []string
	decode(t, rec, &cats)
	assert.Equal(t, "All", cats[0])
	assert.Contains(t, cats, "Festive")
}

func TestBulkPrices(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPut, "/api/products/prices/bulk", `{"prices":{"1":100,"2":"abc","3":-5,"9999":10}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Success bool     `json:"success"`
		Updated []int64  `json:"updated"`
		Skipped []string `json:"skipped"`
	}
	decode(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, []int64{1}, res.Updated)
	assert.ElementsMatch(t, []string{"2", "3", "9999"}, res.Skipped)
}

func TestOrderLifecycle(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/orders", `{"customerName":"Raj","phone":"9000000000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required fields","code":"VALIDATION_ERROR"}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/orders", orderBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var o domain.Order
	decode(t, rec, &o)
	assert.EqualValues(t, 1, o.OrderID)
	assert.Equal(t, domain.OrderStatusNew, o.Status)

	rec = e.do(t, http.MethodPut, "/api/orders/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/orders/77", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Order not found","code":"NOT_FOUND"}`, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/api/orders/1", `{"status":"SHIPPED","paymentStatus":"PAID"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &o)
	assert.Equal(t, domain.OrderStatusShipped, o.Status)
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)

	rec = e.do(t, http.MethodPut, "/api/orders/1/items", `{"items":[{"id":2,"name":"Thali","price":100,"qty":3}],"mode":"replace"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &o)
	assert.EqualValues(t, 300, o.TotalAmount)
	require.Len(t, o.Items, 1)

	rec = e.do(t, http.MethodPut, "/api/orders/1/items", `{"items":[{"id":2,"name":"Thali","price":100,"qty":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &o)
	assert.EqualValues(t, 400, o.TotalAmount)
	assert.Len(t, o.Items, 2)

	rec = e.do(t, http.MethodPost, "/api/orders/1/cancel", `{"cancelReason":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/orders/1/cancel", `{"cancelReason":"Customer request"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &o)
	assert.Equal(t, domain.OrderStatusCancelled, o.Status)
	assert.NotNil(t, o.CancelledAt)

	rec = e.do(t, http.MethodGet, "/api/orders/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderListAndHistory(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/orders", orderBody).Code)
	}
	e.do(t, http.MethodPut, "/api/orders/2", `{"status":"CONFIRMED"}`)

	rec := e.do(t, http.MethodGet, "/api/orders", "")
	var list []domain.Order
	decode(t, rec, &list)
	require.Len(t, list, 3)
	assert.EqualValues(t, 3, list[0].OrderID)

	rec = e.do(t, http.MethodGet, "/api/orders?status=CONFIRMED", "")
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2, list[0].OrderID)

	rec = e.do(t, http.MethodGet, "/api/orders?status=BOGUS", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/orders/history/+919000000000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Len(t, list, 3)
	assert.NotEmpty(t, list[0].FormattedDate)
}

func TestNotifyPreviewAndDispatch(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/orders", orderBody).Code)
	e.do(t, http.MethodPut, "/api/orders/1", `{"status":"CONFIRMED"}`)

	rec := e.do(t, http.MethodGet, "/api/orders/1/notify-preview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p notify.Preview
	decode(t, rec, &p)
	assert.Contains(t, p.Message, "Your order #1 is confirmed!")
	assert.True(t, strings.HasPrefix(p.WhatsAppLink, "https://wa.me/919000000000?text="))
	assert.True(t, strings.HasPrefix(p.SMSLink, "sms:9000000000?body="))

	rec = e.do(t, http.MethodPost, "/api/orders/1/notify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res notify.Result
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, notify.ErrNoChannel.Error(), res.Error)

	rec = e.do(t, http.MethodGet, "/api/orders/5/notify-preview", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/users/register", `{"name":"Asha","mobile":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/users/register", `{"name":"Asha","mobile":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg struct {
		Success bool        `json:"success"`
		User    domain.User `json:"user"`
	}
	decode(t, rec, &reg)
	assert.True(t, reg.Success)
	assert.EqualValues(t, 1, reg.User.UserID)

	rec = e.do(t, http.MethodPost, "/api/users/register", `{"name":"Other","mobile":"9876543210"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Mobile number already registered","code":"CONFLICT"}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/users/login", `{"mobile":"9876543210"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/users/login", `{"mobile":"9999999999"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/users", "")
	var list []domain.User
	decode(t, rec, &list)
	assert.Len(t, list, 1)
}

func TestRatings(t *testing.T) {
	e := newEnv(t)
	body := `{"orderId":1,"customerName":"Raj","phone":"9000000000","ratings":[
		{"productId":1,"productName":"Girl Haldi Kunku Set","rating":5,"review":"Lovely"},
		{"productId":1,"productName":"Girl Haldi Kunku Set","rating":4}]}`
	rec := e.do(t, http.MethodPost, "/api/ratings", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/ratings", `{"orderId":1,"ratings":[{"productId":1,"rating":9}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/ratings/product/1", "")
	var agg domain.RatingAggregate
	decode(t, rec, &agg)
	assert.Equal(t, 4.5, agg.AvgRating)
	assert.Equal(t, 2, agg.Count)

	rec = e.do(t, http.MethodGet, "/api/ratings/order/1", "")
	var rows []domain.Rating
	decode(t, rec, &rows)
	assert.Len(t, rows, 2)

	rec = e.do(t, http.MethodGet, "/api/ratings/all", "")
	var all map[string]domain.RatingAggregate
	decode(t, rec, &all)
	require.Contains(t, all, "1")
	assert.Len(t, all["1"].RecentReviews, 1)
}

func TestScreenshots(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/feedback-screenshots", `{"caption":"no image"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/feedback-screenshots", `{"imageUrl":"/fb/1.jpg","order":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var shot domain.FeedbackScreenshot
	decode(t, rec, &shot)
	assert.True(t, shot.Active)

	rec = e.do(t, http.MethodPut, "/api/feedback-screenshots/"+itoa(shot.ID), `{"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/feedback-screenshots", "")
	var active []domain.FeedbackScreenshot
	decode(t, rec, &active)
	assert.Empty(t, active)

	rec = e.do(t, http.MethodGet, "/api/feedback-screenshots/all", "")
	var all []domain.FeedbackScreenshot
	decode(t, rec, &all)
	assert.Len(t, all, 1)

	rec = e.do(t, http.MethodDelete, "/api/feedback-screenshots/"+itoa(shot.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodDelete, "/api/feedback-screenshots/"+itoa(shot.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/orders", orderBody).Code)

	rec := e.do(t, http.MethodGet, "/api/export/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeXLSX, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "orders_")

	rec = e.do(t, http.MethodGet, "/api/export/daily?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Order ID")
	assert.Contains(t, rec.Body.String(), "Girl Haldi Kunku Set x2")

	rec = e.do(t, http.MethodGet, "/api/export/daily?date=20-03-2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/export/consolidated", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/export/list", "")
	var files []report.FileInfo
	decode(t, rec, &files)
	assert.Len(t, files, 2)

	rec = e.do(t, http.MethodGet, "/api/export/files/orders_all.xlsx", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/export/files/nope.xlsx", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type brokenSource struct{}

func (brokenSource) OrdersBetween(context.Context, time.Time, time.Time) ([]domain.Order, error) {
	return nil, errors.New("database is locked")
}

func (brokenSource) AllOrders(context.Context) ([]domain.Order, error) {
	return nil, errors.New("database is locked")
}

func TestExportDailyCSVStoreError(t *testing.T) {
	e := newEnvWithSource(t, brokenSource{})

	rec := e.do(t, http.MethodGet, "/api/export/daily?format=csv", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderContentDisposition))
	var body webserver.ErrorBody
	decode(t, rec, &body)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
}

func TestExportConcurrentDaily(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/orders", orderBody).Code)

	var wg sync.WaitGroup
	codes := make([]int, 6)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/export/daily", nil)
			rec := httptest.NewRecorder()
			e.srv.Echo().ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()
	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestWhatsAppDisabled(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/whatsapp/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"disabled"`)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/whatsapp/connect", "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/whatsapp/qr", "").Code)

	rec = e.do(t, http.MethodPost, "/api/whatsapp/send", `{"phone":"9000000000","message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestJobs(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/jobs/report/run", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSystemStatus(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/system", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]interface{}
	decode(t, rec, &info)
	assert.Equal(t, "sqlite", info["database"])
	assert.Equal(t, "disabled", info["whatsapp"])
	assert.Contains(t, info, "reportDisk")
}

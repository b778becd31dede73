package report

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/gommon/bytes"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/pkg/common"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	ConsolidatedFile = "orders_all.xlsx"
	dailyPrefix      = "orders_"
	sheetOrders      = "Orders"
	sheetAll         = "All Orders"
	sheetDaily       = "Daily Summary"
)

// OrderSource reads orders for reporting.
type OrderSource interface {
	OrdersBetween(ctx context.Context, from, to time.Time) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)
}

// Uploader pushes a generated file to remote hosting.
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}

type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	SizeText string    `json:"sizeText"`
	ModTime  time.Time `json:"modTime"`
}

// Generator writes daily and consolidated order spreadsheets.
type Generator struct {
	src      OrderSource
	dir      string
	shopName string
	uploader Uploader
	pool     *ants.Pool
}

type Option func(g *Generator)

func WithUploader(u Uploader) Option {
	return func(g *Generator) { g.uploader = u }
}

func WithShopName(name string) Option {
	return func(g *Generator) { g.shopName = name }
}

func NewGenerator(src OrderSource, dir string, opts ...Option) (*Generator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create report dir")
	}
	// one running refresh plus one queued; further requests are folded into the queued one
	pool, err := ants.NewPool(1, ants.WithMaxBlockingTasks(1), ants.WithPanicHandler(func(p interface{}) {
		zap.L().Error("report refresh panic", zap.Any("error", p))
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create report pool")
	}
	g := &Generator{src: src, dir: dir, shopName: "Urban Gulal", pool: pool}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) Dir() string {
	return g.dir
}

func DailyFileName(day time.Time) string {
	return dailyPrefix + day.Format(common.DateFmt) + ".xlsx"
}

// DailyOrders returns orders created on the local calendar date of day.
func (g *Generator) DailyOrders(ctx context.Context, day time.Time) ([]domain.Order, error) {
	from := common.StartOfDay(day.In(time.Local))
	rows, err := g.src.OrdersBetween(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "load daily orders")
	}
	return rows, nil
}

// GenerateDailySheet writes orders_YYYY-MM-DD.xlsx and returns its path.
func (g *Generator) GenerateDailySheet(ctx context.Context, day time.Time) (string, error) {
	orders, err := g.DailyOrders(ctx, day)
	if err != nil {
		return "", err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetOrders); err != nil {
		return "", err
	}
	next, err := writeOrders(f, sheetOrders, orders)
	if err != nil {
		return "", err
	}
	sum := Summarize(orders)
	lines := [][]interface{}{
		{g.shopName + " summary", day.Format(common.DateFmt)},
		{"Total orders", sum.Orders},
	}
	for _, st := range domain.OrderStatuses {
		lines = append(lines, []interface{}{st, sum.ByStatus[st]})
	}
	lines = append(lines,
		[]interface{}{"Revenue (excl. cancelled)", sum.Revenue},
		[]interface{}{"Paid", sum.Paid},
		[]interface{}{"Pending", sum.Pending},
	)
	next++
	for _, line := range lines {
		if err := setRow(f, sheetOrders, next, line); err != nil {
			return "", err
		}
		next++
	}
	return g.save(f, DailyFileName(day))
}

// GenerateConsolidatedSheet writes orders_all.xlsx with every order and a per-date rollup.
func (g *Generator) GenerateConsolidatedSheet(ctx context.Context) (string, error) {
	orders, err := g.src.AllOrders(ctx)
	if err != nil {
		return "", errors.Wrap(err, "load orders")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetAll); err != nil {
		return "", err
	}
	if _, err := writeOrders(f, sheetAll, orders); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(sheetDaily); err != nil {
		return "", err
	}
	header := []interface{}{"Date", "Orders", "Delivered", "Cancelled", "Revenue", "Paid", "Pending"}
	if err := setRow(f, sheetDaily, 1, header); err != nil {
		return "", err
	}
	boldHeader(f, sheetDaily)
	for i, r := range Rollup(orders) {
		row := []interface{}{r.Date, r.Orders, r.Delivered, r.Cancelled, r.Revenue, r.Paid, r.Pending}
		if err := setRow(f, sheetDaily, i+2, row); err != nil {
			return "", err
		}
	}
	return g.save(f, ConsolidatedFile)
}

// WriteDailyCSV writes the orders of one day as csv.
func (g *Generator) WriteDailyCSV(ctx context.Context, day time.Time, w io.Writer) error {
	orders, err := g.DailyOrders(ctx, day)
	if err != nil {
		return err
	}
	return WriteCSV(orders, w)
}

// WriteCSV marshals orders as CSV rows with a header line.
func WriteCSV(orders []domain.Order, w io.Writer) error {
	rows := make([]*OrderRow, 0, len(orders))
	for _, o := range orders {
		r := ToRow(o)
		rows = append(rows, &r)
	}
	return gocsv.Marshal(&rows, w)
}

func isReportName(name string) bool {
	return strings.HasSuffix(name, ".xlsx") && !strings.HasPrefix(name, ".")
}

// List returns the generated files, newest first.
func (g *Generator) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read report dir")
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isReportName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			SizeText: bytes.Format(info.Size()),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Path resolves a listed report name inside the report dir.
func (g *Generator) Path(name string) (string, bool) {
	if name != filepath.Base(name) || !isReportName(name) {
		return "", false
	}
	p := filepath.Join(g.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Run regenerates today's sheet and the consolidated sheet and pushes both
// when an uploader is configured.
func (g *Generator) Run(ctx context.Context, day time.Time) error {
	daily, err := g.GenerateDailySheet(ctx, day)
	if err != nil {
		return err
	}
	all, err := g.GenerateConsolidatedSheet(ctx)
	if err != nil {
		return err
	}
	if g.uploader != nil {
		for _, p := range []string{daily, all} {
			if err := g.uploader.Upload(ctx, p); err != nil {
				return errors.Wrapf(err, "upload %s", filepath.Base(p))
			}
		}
	}
	zap.L().Info("reports generated", zap.String("daily", filepath.Base(daily)), zap.Bool("uploaded", g.uploader != nil))
	return nil
}

// Refresh queues a background Run for today. The caller blocks while a run
// is active and nothing is queued yet; requests arriving when one is already
// queued are dropped since that run will see their data. Errors are logged only.
func (g *Generator) Refresh() {
	err := g.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := g.Run(ctx, time.Now()); err != nil {
			zap.L().Warn("report refresh failed", zap.Error(err))
		}
	})
	if err != nil && !errors.Is(err, ants.ErrPoolOverload) {
		zap.L().Warn("report refresh not queued", zap.Error(err))
	}
}

// Close waits for queued refreshes.
func (g *Generator) Close() {
	_ = g.pool.ReleaseTimeout(30 * time.Second)
}

// tempPrefix marks in-progress workbooks; List and Path ignore them.
const tempPrefix = ".tmp-"

func (g *Generator) save(f *excelize.File, name string) (string, error) {
	final := filepath.Join(g.dir, name)
	tmp, err := os.CreateTemp(g.dir, tempPrefix+strings.TrimSuffix(name, ".xlsx")+"-*.xlsx")
	if err != nil {
		return "", errors.Wrapf(err, "save %s", name)
	}
	tmpName := tmp.Name()
	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", errors.Wrapf(err, "save %s", name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrapf(err, "save %s", name)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", errors.Wrapf(err, "replace %s", name)
	}
	return final, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func boldHeader(f *excelize.File, sheet string) {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return
	}
	_ = f.SetRowStyle(sheet, 1, 1, style)
}

// writeOrders writes the header and one row per order; it returns the last row used.
func writeOrders(f *excelize.File, sheet string, orders []domain.Order) (int, error) {
	if err := setRow(f, sheet, 1, orderHeader); err != nil {
		return 0, err
	}
	boldHeader(f, sheet)
	_ = f.SetColWidth(sheet, "D", "F", 24)
	_ = f.SetColWidth(sheet, "I", "I", 48)
	row := 1
	for _, o := range orders {
		row++
		if err := setRow(f, sheet, row, ToRow(o).values()); err != nil {
			return 0, err
		}
	}
	return row, nil
}

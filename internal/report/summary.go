package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/pkg/common"
)

// Summary is the footer of a daily sheet.
type Summary struct {
	Orders   int            `json:"orders"`
	ByStatus map[string]int `json:"byStatus"`
	Revenue  int64          `json:"revenue"` // excluding cancelled
	Paid     int64          `json:"paid"`    // paid and not cancelled
	Pending  int64          `json:"pending"`
}

func Summarize(orders []domain.Order) Summary {
	s := Summary{ByStatus: make(map[string]int, len(domain.OrderStatuses))}
	for _, st := range domain.OrderStatuses {
		s.ByStatus[st] = 0
	}
	for _, o := range orders {
		s.Orders++
		s.ByStatus[o.Status]++
		if o.Status == domain.OrderStatusCancelled {
			continue
		}
		s.Revenue += o.TotalAmount
		if o.PaymentStatus == domain.PaymentPaid {
			s.Paid += o.TotalAmount
		}
	}
	s.Pending = s.Revenue - s.Paid
	return s
}

// DayRow is one line of the consolidated per-date rollup.
type DayRow struct {
	Date      string `json:"date" csv:"Date"`
	Orders    int    `json:"orders" csv:"Orders"`
	Delivered int    `json:"delivered" csv:"Delivered"`
	Cancelled int    `json:"cancelled" csv:"Cancelled"`
	Revenue   int64  `json:"revenue" csv:"Revenue"`
	Paid      int64  `json:"paid" csv:"Paid"`
	Pending   int64  `json:"pending" csv:"Pending"`
}

// Rollup groups orders by local calendar date, oldest date first.
func Rollup(orders []domain.Order) []DayRow {
	byDate := make(map[string]*DayRow)
	for _, o := range orders {
		day := o.CreatedAt.In(time.Local).Format(common.DateFmt)
		row, ok := byDate[day]
		if !ok {
			row = &DayRow{Date: day}
			byDate[day] = row
		}
		row.Orders++
		switch o.Status {
		case domain.OrderStatusDelivered:
			row.Delivered++
		case domain.OrderStatusCancelled:
			row.Cancelled++
			continue
		}
		row.Revenue += o.TotalAmount
		if o.PaymentStatus == domain.PaymentPaid {
			row.Paid += o.TotalAmount
		}
	}
	out := make([]DayRow, 0, len(byDate))
	for _, row := range byDate {
		row.Pending = row.Revenue - row.Paid
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// OrderRow is the flat form of an order used by both sheet and csv output.
type OrderRow struct {
	OrderID       int64  `csv:"Order ID"`
	Date          string `csv:"Date"`
	Time          string `csv:"Time"`
	CustomerName  string `csv:"Customer"`
	Phone         string `csv:"Phone"`
	Address       string `csv:"Address"`
	City          string `csv:"City"`
	Pincode       string `csv:"Pincode"`
	Items         string `csv:"Items"`
	TotalAmount   int64  `csv:"Total"`
	Status        string `csv:"Status"`
	PaymentStatus string `csv:"Payment"`
	Notes         string `csv:"Notes"`
	CancelReason  string `csv:"Cancel Reason"`
	AdminFeedback string `csv:"Admin Feedback"`
}

var orderHeader = []interface{}{
	"Order ID", "Date", "Time", "Customer", "Phone", "Address", "City", "Pincode",
	"Items", "Total", "Status", "Payment", "Notes", "Cancel Reason", "Admin Feedback",
}

// ItemsText renders "name xqty" lines joined by commas.
func ItemsText(items []domain.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Name+" x"+strconv.FormatInt(it.Qty, 10))
	}
	return strings.Join(parts, ", ")
}

func ToRow(o domain.Order) OrderRow {
	local := o.CreatedAt.In(time.Local)
	return OrderRow{
		OrderID:       o.OrderID,
		Date:          local.Format(common.DateFmt),
		Time:          local.Format("15:04"),
		CustomerName:  o.CustomerName,
		Phone:         o.Phone,
		Address:       o.Address,
		City:          o.City,
		Pincode:       o.Pincode,
		Items:         ItemsText(o.Items),
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Notes:         o.Notes,
		CancelReason:  o.CancelReason,
		AdminFeedback: o.AdminFeedback,
	}
}

func (r OrderRow) values() []interface{} {
	return []interface{}{
		r.OrderID, r.Date, r.Time, r.CustomerName, r.Phone, r.Address, r.City, r.Pincode,
		r.Items, r.TotalAmount, r.Status, r.PaymentStatus, r.Notes, r.CancelReason, r.AdminFeedback,
	}
}

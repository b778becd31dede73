package notify

import (
	"fmt"
	"strings"

	"github.com/urbangulal/urbangulal/config"
	"github.com/urbangulal/urbangulal/internal/domain"
	"gopkg.in/gomail.v2"
)

// Mailer sends operator alerts over smtp.
type Mailer struct {
	cfg    config.MailConfig
	shop   string
	dialer *gomail.Dialer
}

// NewMailer returns nil when mail is disabled or incomplete.
func NewMailer(cfg config.MailConfig, shop string) *Mailer {
	if !cfg.Enabled || cfg.Host == "" || cfg.AdminTo == "" {
		return nil
	}
	return &Mailer{
		cfg:    cfg,
		shop:   shop,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd),
	}
}

func (m *Mailer) NewOrderAlert(o domain.Order) error {
	subject, body := newOrderAlert(m.shop, o)
	msg := gomail.NewMessage()
	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}
	msg.SetHeader("From", from)
	msg.SetHeader("To", strings.Split(m.cfg.AdminTo, ",")...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

func newOrderAlert(shop string, o domain.Order) (string, string) {
	subject := fmt.Sprintf("[%s] New order #%d from %s", shop, o.OrderID, o.CustomerName)
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d\n", o.OrderID)
	fmt.Fprintf(&b, "Customer: %s (%s)\n", o.CustomerName, o.Phone)
	fmt.Fprintf(&b, "Address: %s, %s - %s\n", o.Address, o.City, o.Pincode)
	if o.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", o.Notes)
	}
	b.WriteString("\nItems:\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  %s x%d @ ₹%d\n", it.Name, it.Qty, it.Price)
	}
	fmt.Fprintf(&b, "\nTotal: ₹%d\nPayment: %s\n", o.TotalAmount, o.PaymentStatus)
	return subject, b.String()
}

package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/pkg/common"
)

const DefaultShopName = "Urban Gulal"

// Composer renders customer facing order messages.
type Composer struct {
	Shop        string
	CountryCode string
}

func NewComposer(shop, countryCode string) Composer {
	return Composer{Shop: common.IfEmptyStr(shop, DefaultShopName), CountryCode: countryCode}
}

// StatusMessage is Composer.StatusMessage with the default shop name.
func StatusMessage(o domain.Order, status string) string {
	return NewComposer(DefaultShopName, "").StatusMessage(o, status)
}

func itemsList(items []domain.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.Name, it.Qty))
	}
	return strings.Join(parts, ", ")
}

// StatusMessage renders the message sent when o moves to status.
func (c Composer) StatusMessage(o domain.Order, status string) string {
	items := itemsList(o.Items)
	switch status {
	case domain.OrderStatusNew:
		addr := strings.Join(nonEmpty(o.Address, o.City), ", ")
		if o.Pincode != "" {
			addr += " - " + o.Pincode
		}
		return fmt.Sprintf("🎨 %s: Thank you %s! Your order #%d has been received.\n\nItems: %s\nTotal: ₹%d\nDeliver to: %s\n\nWe'll confirm it shortly.",
			c.Shop, o.CustomerName, o.OrderID, items, o.TotalAmount, addr)
	case domain.OrderStatusConfirmed:
		return fmt.Sprintf("🎨 %s: Your order #%d is confirmed!\n\nItems: %s\nTotal: ₹%d\n\nWe'll notify you when it's shipped. Thank you!",
			c.Shop, o.OrderID, items, o.TotalAmount)
	case domain.OrderStatusShipped:
		return fmt.Sprintf("📦 %s: Your order #%d has been shipped!\n\nItems: %s\n\nYou'll receive it soon. Thank you for shopping with us!",
			c.Shop, o.OrderID, items)
	case domain.OrderStatusDelivered:
		return fmt.Sprintf("✅ %s: Your order #%d has been delivered!\n\nWe hope you love your items. Thank you for choosing %s! 🎨",
			c.Shop, o.OrderID, c.Shop)
	case domain.OrderStatusCancelled:
		return fmt.Sprintf("❌ %s: Your order #%d has been cancelled.\n\nReason: %s\n\nIf you have questions, please contact us.",
			c.Shop, o.OrderID, common.IfEmptyStr(o.CancelReason, common.NA))
	default:
		return fmt.Sprintf("🎨 %s: Update for your order #%d\n\nStatus: %s\nItems: %s\nTotal: ₹%d",
			c.Shop, o.OrderID, status, items, o.TotalAmount)
	}
}

func nonEmpty(ss ...string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if !common.IsEmpty(s) {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// WhatsAppLink returns a click-to-chat link carrying msg.
func (c Composer) WhatsAppLink(phone, msg string) string {
	return "https://wa.me/" + common.IntlDigits(phone, c.CountryCode) + "?text=" + encodeComponent(msg)
}

// SMSLink returns an sms: URI carrying msg.
func (c Composer) SMSLink(phone, msg string) string {
	return "sms:" + strings.TrimSpace(phone) + "?body=" + encodeComponent(msg)
}

// encodeComponent escapes s for a query value with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Preview is what an operator sees before sending a status message by hand.
type Preview struct {
	Message      string `json:"message"`
	WhatsAppLink string `json:"whatsappLink"`
	SMSLink      string `json:"smsLink"`
}

func (c Composer) Preview(o domain.Order) Preview {
	msg := c.StatusMessage(o, o.Status)
	return Preview{
		Message:      msg,
		WhatsAppLink: c.WhatsAppLink(o.Phone, msg),
		SMSLink:      c.SMSLink(o.Phone, msg),
	}
}

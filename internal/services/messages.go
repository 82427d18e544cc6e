package services

import (
	"fmt"
	"strings"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

// Тексты сообщений для клиента (WhatsApp markdown: *жирный*).

func OTPMessage(name, otp string, total models.FlexString) string {
	return fmt.Sprintf("🔐 *OTP Verification*\n\n"+
		"Hello %s,\n"+
		"Your OTP is *%s*.\n"+
		"Order Amount: ₹%s\n\n"+
		"Enter this OTP on website to confirm your COD order.",
		firstNonEmpty(name, "Customer"), otp, firstNonEmpty(total.String(), "0"))
}

func CODPlacedMessage(o *models.Order) string {
	return "🎉 *COD Order Placed Successfully!*\n\n" + BuildOrderSummary(o) + "\n\nThank you ❤️"
}

func OrderCreatedMessage(o *models.Order) string {
	return "🧾 *Order Confirmed!*\n\n" + BuildOrderSummary(o) + "\n\nThank you for shopping with us ❤️"
}

func OrderUpdatedMessage(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 *Order Update*\nYour order *%s* has been updated.\n\n", firstNonEmpty(o.Name, notAvailable))
	fmt.Fprintf(&b, "*Current Status:* %s\n\n", firstNonEmpty(o.FinancialStatus, notAvailable))
	b.WriteString(BuildOrderSummary(o))

	if o.FulfillmentStatus == "fulfilled" {
		if t := TrackingInfo(o); t != nil {
			b.WriteString("\n\n📦 *Your order has been shipped!*\n")
			fmt.Fprintf(&b, "*Courier:* %s", t.Company)
			if t.Number != "" {
				fmt.Fprintf(&b, "\n*Tracking ID:* %s", t.Number)
			}
			if t.URL != "" {
				fmt.Fprintf(&b, "\n*Track here:* %s", t.URL)
			}
		}
	}
	return b.String()
}

func OrderCancelledMessage(o *models.Order) string {
	return fmt.Sprintf("❌ *Order Cancelled*\nYour order *%s* has been cancelled.\n\n*Reason:* %s\n\n%s\n\nIf this was a mistake, you can reorder anytime.",
		firstNonEmpty(o.Name, notAvailable), firstNonEmpty(o.CancelReason, notAvailable), BuildOrderSummary(o))
}

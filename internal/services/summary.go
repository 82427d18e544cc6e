package services

import (
	"fmt"
	"strings"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

const notAvailable = "N/A"

// BuildOrderSummary renders the multi-line order block used in every customer message.
// Missing fields fall back to N/A or a safe default; a zero Order is fine.
func BuildOrderSummary(o *models.Order) string {
	if o == nil {
		o = &models.Order{}
	}
	var line models.LineItem
	if len(o.LineItems) > 0 {
		line = o.LineItems[0]
	}
	billing := addrOrEmpty(o.BillingAddress)
	shipping := addrOrEmpty(o.ShippingAddress)

	product := firstNonEmpty(line.Title, notAvailable)
	if line.VariantTitle != "" {
		product += " (" + line.VariantTitle + ")"
	}
	qty := line.Quantity.String()
	if line.Quantity.Empty() {
		qty = "1"
	}
	total := firstNonEmpty(
		o.CurrentTotalPrice.String(),
		o.CurrentSubtotalPrice.String(),
		o.TotalPrice.String(),
		"0.00",
	)
	currency := firstNonEmpty(o.Currency, "INR")

	city := firstNonEmpty(shipping.City, billing.City)
	cityLine := city
	if city != "" {
		cityLine += ","
	}
	cityLine += " " + firstNonEmpty(shipping.Province, billing.Province)

	address := joinNonBlank("\n",
		firstNonEmpty(shipping.Name, billing.Name),
		firstNonEmpty(shipping.Address1, billing.Address1),
		firstNonEmpty(shipping.Address2, billing.Address2),
		strings.TrimSuffix(strings.TrimSpace(cityLine), ","),
		firstNonEmpty(shipping.Zip.String(), billing.Zip.String()),
		firstNonEmpty(shipping.Country, billing.Country, defaultCountry),
	)
	if address == "" {
		address = notAvailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "• Product: %s\n", product)
	fmt.Fprintf(&b, "• Qty: %s\n", qty)
	fmt.Fprintf(&b, "• Total: ₹%s %s\n\n", total, currency)
	fmt.Fprintf(&b, "• Order No: %s\n", firstNonEmpty(o.Name, notAvailable))
	fmt.Fprintf(&b, "• Email: %s\n", firstNonEmpty(o.Email, notAvailable))
	fmt.Fprintf(&b, "• Phone: %s\n\n", firstNonEmpty(billing.Phone, shipping.Phone, notAvailable))
	fmt.Fprintf(&b, "• Payment Status: %s\n", firstNonEmpty(o.FinancialStatus, notAvailable))
	fmt.Fprintf(&b, "• Fulfilment Status: %s\n\n", firstNonEmpty(o.FulfillmentStatus, "unfulfilled"))
	fmt.Fprintf(&b, "• Shipping Address:\n%s", address)
	return strings.TrimSpace(b.String())
}

// Tracking is the courier data of a shipped order.
type Tracking struct {
	URL     string
	Company string
	Number  string
}

// TrackingInfo выбирает первую отгрузку с данными трекинга (или просто первую)
// и собирает ссылку, перевозчика и номер из любого из форматов платформы.
func TrackingInfo(o *models.Order) *Tracking {
	if o == nil || len(o.Fulfillments) == 0 {
		return nil
	}
	f := o.Fulfillments[0]
	for _, ff := range o.Fulfillments {
		if len(ff.TrackingURLs) > 0 || ff.TrackingURL != "" || ff.TrackingNumber != "" || len(ff.TrackingNumbers) > 0 || ff.TrackingInfo != nil {
			f = ff
			break
		}
	}
	info := models.TrackingInfo{}
	if f.TrackingInfo != nil {
		info = *f.TrackingInfo
	}

	url := firstNonEmpty(firstOf(f.TrackingURLs), f.TrackingURL, info.URL, info.TrackingURL)
	company := firstNonEmpty(f.TrackingCompany, info.Company, info.TrackingCompany, "Courier")
	number := firstNonEmpty(f.TrackingNumber, firstOf(f.TrackingNumbers), info.Number, info.TrackingNumber)

	if url == "" && number == "" {
		return nil
	}
	return &Tracking{URL: url, Company: company, Number: number}
}

func addrOrEmpty(a *models.Address) models.Address {
	if a == nil {
		return models.Address{}
	}
	return *a
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstOf(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

package models

// OrderRequest is the create-order payload sent to the commerce API.
type OrderRequest struct {
	Order OrderRequestBody `json:"order"`
}

type OrderRequestBody struct {
	LineItems       []OrderLineItem `json:"line_items"`
	BillingAddress  Address         `json:"billing_address"`
	ShippingAddress Address         `json:"shipping_address"`
	FinancialStatus string          `json:"financial_status"`
	Gateway         string          `json:"gateway"`
	Tags            string          `json:"tags,omitempty"`
	NoteAttributes  []NoteAttribute `json:"note_attributes,omitempty"`
}

type OrderLineItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
	// Price is a per-unit override; empty means catalog price.
	Price string `json:"price,omitempty"`
}

type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Address struct {
	Name     string     `json:"name,omitempty"`
	Address1 string     `json:"address1,omitempty"`
	Address2 string     `json:"address2,omitempty"`
	City     string     `json:"city,omitempty"`
	Province string     `json:"province,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Zip      FlexString `json:"zip,omitempty"`
	Country  string     `json:"country,omitempty"`
}

// Order: заказ в представлении коммерческой платформы (вебхуки и ответ create).
// Читаем только то, что нужно для текстов уведомлений.
type Order struct {
	ID                   FlexString    `json:"id"`
	Name                 string        `json:"name"`
	OrderNumber          FlexString    `json:"order_number"`
	Email                string        `json:"email"`
	Currency             string        `json:"currency"`
	CurrentTotalPrice    FlexString    `json:"current_total_price"`
	CurrentSubtotalPrice FlexString    `json:"current_subtotal_price"`
	TotalPrice           FlexString    `json:"total_price"`
	FinancialStatus      string        `json:"financial_status"`
	FulfillmentStatus    string        `json:"fulfillment_status"`
	CancelReason         string        `json:"cancel_reason"`
	LineItems            []LineItem    `json:"line_items"`
	BillingAddress       *Address      `json:"billing_address"`
	ShippingAddress      *Address      `json:"shipping_address"`
	Fulfillments         []Fulfillment `json:"fulfillments"`
}

type LineItem struct {
	Title        string     `json:"title"`
	VariantTitle string     `json:"variant_title"`
	VariantID    FlexString `json:"variant_id"`
	Quantity     FlexString `json:"quantity"`
	Price        FlexString `json:"price"`
}

type Fulfillment struct {
	TrackingCompany string        `json:"tracking_company"`
	TrackingNumber  string        `json:"tracking_number"`
	TrackingNumbers []string      `json:"tracking_numbers"`
	TrackingURL     string        `json:"tracking_url"`
	TrackingURLs    []string      `json:"tracking_urls"`
	TrackingInfo    *TrackingInfo `json:"tracking_info"`
}

type TrackingInfo struct {
	URL             string `json:"url"`
	TrackingURL     string `json:"tracking_url"`
	Company         string `json:"company"`
	TrackingCompany string `json:"tracking_company"`
	Number          string `json:"number"`
	TrackingNumber  string `json:"tracking_number"`
}

// Phone returns the billing phone, falling back to shipping.
func (o *Order) Phone() string {
	if o.BillingAddress != nil && o.BillingAddress.Phone != "" {
		return o.BillingAddress.Phone
	}
	if o.ShippingAddress != nil {
		return o.ShippingAddress.Phone
	}
	return ""
}

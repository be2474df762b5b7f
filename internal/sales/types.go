package sales

import "time"

// DailySale is one ingested line: units of a product sold on a calendar day.
type DailySale struct {
	ProductID string    `json:"productId"`
	SKU       string    `json:"sku,omitempty"`
	Date      time.Time `json:"date"`
	Quantity  int       `json:"quantity"`
}

// RecordInput is a batch of daily sales for one shop. Service.Record checks it
// itself; the HTTP body is validated separately by the controller.
type RecordInput struct {
	Sales []DailySale `json:"sales"`
}

// ProductKey identifies a product within a shop.
type ProductKey struct {
	ShopDomain string `json:"shopDomain"`
	ProductID  string `json:"productId"`
}

func (k ProductKey) String() string {
	return k.ShopDomain + "/" + k.ProductID
}

// RecordResult reports what an ingest call touched.
type RecordResult struct {
	Accepted int          `json:"accepted"`
	Products []ProductKey `json:"products"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// SalesRecord is the aggregated units sold for one product on one day in a shop.
type SalesRecord struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ShopDomain string    `gorm:"column:shop_domain;not null;uniqueIndex:ux_sales_records_shop_product_day,priority:1"`
	ProductID  string    `gorm:"column:product_id;not null;uniqueIndex:ux_sales_records_shop_product_day,priority:2"`
	SKU        *string   `gorm:"column:sku"`
	SoldOn     time.Time `gorm:"column:sold_on;type:date;not null;uniqueIndex:ux_sales_records_shop_product_day,priority:3;index"`
	Quantity   int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SalesRecord) TableName() string { return "sales_records" }

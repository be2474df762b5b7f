package forecasting

import (
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/shopspring/decimal"
)

// Summary is the dashboard view of a product's demand outlook.
type Summary struct {
	ShopDomain    string                   `json:"shopDomain"`
	ProductID     string                   `json:"productId"`
	Tomorrow      forecast.Prediction      `json:"tomorrow"`
	Daily         []forecast.Prediction    `json:"daily"`
	Next7Days     int                      `json:"next7Days"`
	Next30Days    int                      `json:"next30Days"`
	AverageDaily  decimal.Decimal          `json:"averageDaily"`
	Accuracy      *forecast.BacktestResult `json:"accuracy"`
	AccuracyLabel string                   `json:"accuracyLabel"`
	HistoryDays   int                      `json:"historyDays"`
	GeneratedAt   time.Time                `json:"generatedAt"`
}

package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
)

// MaxHistoryDays bounds how far back a history read may reach.
const MaxHistoryDays = 3 * 365

// HistoryReader loads the sales series fed to the forecasting engine.
type HistoryReader struct {
	repo *Repository
	now  func() time.Time
}

// utcNow is the default clock. Sale dates are UTC calendar days, so "today"
// must be too.
func utcNow() time.Time { return time.Now().UTC() }

// NewHistoryReader builds a reader; a nil clock means utcNow.
func NewHistoryReader(repo *Repository, now func() time.Time) *HistoryReader {
	if now == nil {
		now = utcNow
	}
	return &HistoryReader{repo: repo, now: now}
}

// History returns a gap-free daily series for key covering up to lookbackDays days
// before today. The series starts at the first recorded sale in the window and
// ends yesterday; days without a row are reported as zero demand. Today's partial
// sales are excluded.
func (h *HistoryReader) History(ctx context.Context, key ProductKey, lookbackDays int) ([]forecast.SalesRecord, error) {
	key.ShopDomain = normalizeShop(key.ShopDomain)
	key.ProductID = strings.TrimSpace(key.ProductID)
	if key.ShopDomain == "" || key.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain and product id are required")
	}
	if lookbackDays <= 0 || lookbackDays > MaxHistoryDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("lookback must be between 1 and %d days", MaxHistoryDays))
	}

	today := calendarDay(h.now())
	sparse, err := h.repo.History(ctx, key, today.AddDate(0, 0, -lookbackDays))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales history")
	}
	return Densify(sparse, today), nil
}

// Densify turns a sparse series into one record per day, from the earliest
// record up to but excluding until. Missing days get zero quantity and
// records on or after until are dropped.
func Densify(sparse []forecast.SalesRecord, until time.Time) []forecast.SalesRecord {
	until = calendarDay(until)
	if len(sparse) == 0 {
		return []forecast.SalesRecord{}
	}
	start := calendarDay(sparse[0].Date)
	for _, rec := range sparse[1:] {
		if d := calendarDay(rec.Date); d.Before(start) {
			start = d
		}
	}
	if !start.Before(until) {
		return []forecast.SalesRecord{}
	}

	days := int(until.Sub(start).Hours() / 24)
	dense := make([]forecast.SalesRecord, days)
	for i := range dense {
		dense[i] = forecast.SalesRecord{Date: start.AddDate(0, 0, i)}
	}
	for _, rec := range sparse {
		idx := int(calendarDay(rec.Date).Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		dense[idx].Quantity += rec.Quantity
	}
	return dense
}


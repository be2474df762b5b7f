package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stockcast-backend/api/middleware"
	"github.com/angelmondragon/stockcast-backend/api/responses"
	"github.com/angelmondragon/stockcast-backend/api/validators"
	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
)

const defaultSalesHistoryDays = 90

type recordSalesRequest struct {
	Sales []saleLine `json:"sales" validate:"required,min=1,max=500,dive"`
}

type saleLine struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	SKU       string `json:"sku,omitempty" validate:"omitempty,max=128"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Quantity  *int   `json:"quantity" validate:"required,gte=0"`
}

func (r recordSalesRequest) toInput() (sales.RecordInput, error) {
	input := sales.RecordInput{Sales: make([]sales.DailySale, 0, len(r.Sales))}
	for i, line := range r.Sales {
		day, err := time.Parse(validators.DateLayout, line.Date)
		if err != nil {
			return sales.RecordInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale date").
				WithDetails(map[string]any{"index": i})
		}
		input.Sales = append(input.Sales, sales.DailySale{
			ProductID: validators.SanitizeString(line.ProductID, 64),
			SKU:       validators.SanitizeString(line.SKU, 128),
			Date:      day,
			Quantity:  *line.Quantity,
		})
	}
	return input, nil
}

type salesHistoryResponse struct {
	ShopDomain string                 `json:"shopDomain"`
	ProductID  string                 `json:"productId"`
	Days       int                    `json:"days"`
	History    []forecast.SalesRecord `json:"history"`
}

// RecordSales ingests a batch of daily sales for the calling shop.
func RecordSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		shop := middleware.ShopDomainFromContext(r.Context())
		if shop == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		var payload recordSalesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Record(r.Context(), shop, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ProductSales returns the zero-filled daily history for a product.
func ProductSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		key, err := productKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", defaultSalesHistoryDays, 1, sales.MaxHistoryDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), key, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, salesHistoryResponse{
			ShopDomain: key.ShopDomain,
			ProductID:  key.ProductID,
			Days:       days,
			History:    history,
		})
	}
}

func productKey(r *http.Request) (sales.ProductKey, error) {
	shop := middleware.ShopDomainFromContext(r.Context())
	if shop == "" {
		return sales.ProductKey{}, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	productID := validators.SanitizeString(chi.URLParam(r, "productId"), 64)
	if productID == "" {
		return sales.ProductKey{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return sales.ProductKey{ShopDomain: shop, ProductID: productID}, nil
}

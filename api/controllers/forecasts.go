package controllers

import (
	"net/http"

	"github.com/angelmondragon/stockcast-backend/api/responses"
	"github.com/angelmondragon/stockcast-backend/api/validators"
	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/angelmondragon/stockcast-backend/internal/forecasting"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
)

const defaultDailyForecastDays = 7

type accuracyResponse struct {
	*forecast.BacktestResult
	Label string `json:"label"`
}

// ProductForecast predicts a single day; without a date it predicts tomorrow.
func ProductForecast(svc forecasting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}
		key, err := productKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pred, err := svc.Predict(r.Context(), key, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pred)
	}
}

func ProductForecastDaily(svc forecasting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}
		key, err := productKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", defaultDailyForecastDays, 1, forecasting.MaxHorizonDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preds, err := svc.PredictDays(r.Context(), key, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preds)
	}
}

// ProductForecastAccuracy backtests the product. data is null when the
// history is too short to evaluate.
func ProductForecastAccuracy(svc forecasting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}
		key, err := productKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		window, err := validators.ParseQueryInt(r, "window", 0, 0, forecasting.MaxBacktestWindow)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Accuracy(r.Context(), key, window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, accuracyResponse{
			BacktestResult: result,
			Label:          forecasting.AccuracyLabel(result.Accuracy),
		})
	}
}

func ProductForecastSummary(svc forecasting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}
		key, err := productKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

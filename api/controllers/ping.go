package controllers

import (
	"net/http"

	"github.com/angelmondragon/stockcast-backend/api/middleware"
	"github.com/angelmondragon/stockcast-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func ShopPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "shop", "status": "ok"}
		if shop := middleware.ShopDomainFromContext(r.Context()); shop != "" {
			payload["shop_domain"] = shop
		}
		responses.WriteSuccess(w, payload)
	}
}

package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/angelmondragon/stockcast-backend/api/responses"
	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
)

const shopDomainHeader = "X-Shop-Domain"

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{0,253}[a-z0-9]$`)

// ShopContext requires an X-Shop-Domain header and scopes the request to it.
func ShopContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := strings.ToLower(strings.TrimSpace(r.Header.Get(shopDomainHeader)))
			if shop == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
				return
			}
			if !shopDomainPattern.MatchString(shop) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid shop domain").
					WithDetails(map[string]any{"header": shopDomainHeader}))
				return
			}
			ctx := WithShopDomain(r.Context(), shop)
			if logg != nil {
				ctx = logg.WithShopDomain(ctx, shop)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

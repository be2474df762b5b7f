package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

func TestMetadataForKnownCodes(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:  {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeForbidden:   {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
		CodeNotFound:    {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeConflict:    {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
		CodeIdempotency: {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeRateLimit:   {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
		CodeInternal:    {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:  {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}
	if len(want) != len(metadataByCode) {
		t.Fatalf("metadata table has %d codes, test covers %d", len(metadataByCode), len(want))
	}
	for code, meta := range want {
		if got := MetadataFor(code); got != meta {
			t.Fatalf("code %s: got %+v want %+v", code, got, meta)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("ORDER_EXPIRED")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestSaleValidationErrorCarriesIndex(t *testing.T) {
	err := New(CodeValidation, "quantity must be non-negative").WithDetails(map[string]any{"index": 3})
	if err.Code() != CodeValidation || err.Message() != "quantity must be non-negative" {
		t.Fatalf("unexpected error %s: %q", err.Code(), err.Message())
	}
	details, ok := err.Details().(map[string]any)
	if !ok || details["index"] != 3 {
		t.Fatalf("expected index detail, got %#v", err.Details())
	}
	if New(CodeForbidden, "shop context missing").Details() != nil {
		t.Fatalf("details should be nil by default")
	}
}

func TestWrapKeepsDependencyCause(t *testing.T) {
	cause := stdErrors.New("dial tcp 10.0.0.5:6379: connect: connection refused")
	wrapped := Wrap(CodeDependency, cause, "invalidate forecast summary")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}

	outer := fmt.Errorf("record sales: %w", wrapped)
	if got := As(outer); got == nil || got.Code() != CodeDependency {
		t.Fatalf("As failed to find typed error through fmt wrapping")
	}
	if As(cause) != nil || As(nil) != nil {
		t.Fatalf("As should return nil for untyped errors")
	}
}

func TestDumpPostgresUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: "ux_sales_records_shop_product_day",
		TableName:      "sales_records",
	}
	dump := Dump(Wrap(CodeConflict, pgErr, "upsert daily sales"))

	if dump.Code != CodeConflict || dump.Retryable {
		t.Fatalf("unexpected code/retryable %s/%v", dump.Code, dump.Retryable)
	}
	if dump.Source != SourcePostgres || dump.PGCode != "23505" {
		t.Fatalf("expected postgres 23505, got %q %q", dump.Source, dump.PGCode)
	}
	if dump.PGConstraint != "ux_sales_records_shop_product_day" || dump.PGTable != "sales_records" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", dump.Chain)
	}
}

func TestDumpClassifiesSource(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		source    string
		retryable bool
	}{
		{"redis miss", Wrap(CodeDependency, redis.Nil, "read summary"), SourceRedis, true},
		{"redis timeout", Wrap(CodeDependency, context.DeadlineExceeded, "rate limit"), SourceTimeout, true},
		{"plain", New(CodeValidation, "invalid shop domain"), "", false},
		{"untyped", stdErrors.New("boom"), "", false},
	}
	for _, tt := range tests {
		dump := Dump(tt.err)
		if dump.Source != tt.source || dump.Retryable != tt.retryable {
			t.Fatalf("%s: got source %q retryable %v", tt.name, dump.Source, dump.Retryable)
		}
	}
	if got := Dump(nil); got.TopMessage != "" || got.Chain != nil {
		t.Fatalf("Dump(nil) should be empty, got %+v", got)
	}
}

package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/stockcast-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleBody struct {
	Day      string `json:"day" validate:"required,datetime=2006-01-02"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"day":"2024-03-01","quantity":3}`))
	var body sampleBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, 3, body.Quantity)
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"day":"03/01/2024","quantity":-1}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a date formatted YYYY-MM-DD", details["day"])
	assert.Equal(t, "must be at least 0", details["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"day":"2024-03-01","extra":true}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?days=7&bad=x&big=500", nil)

	v, err := ParseQueryInt(req, "days", 30, 1, 90)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = ParseQueryInt(req, "missing", 30, 1, 90)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	_, err = ParseQueryInt(req, "bad", 30, 1, 90)
	assert.Error(t, err)
	_, err = ParseQueryInt(req, "big", 30, 1, 90)
	assert.Error(t, err)
}

func TestParseQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?date=2024-04-01&bad=April", nil)

	v, err := ParseQueryDate(req, "date")
	require.NoError(t, err)
	assert.True(t, v.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

	v, err = ParseQueryDate(req, "missing")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParseQueryDate(req, "bad")
	assert.Error(t, err)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString(" abc ", 0))
	assert.Equal(t, "gid://shopify/Product/101", SanitizeString("gid://shopify/Product/101\x00\t", 64))
	assert.Equal(t, "TEE-M", SanitizeString("TEE\u0007-M", 128))
	// "é" is two bytes; a cap inside it drops the whole rune
	assert.Equal(t, "caf", SanitizeString("café", 4))
	assert.Equal(t, "café", SanitizeString("café", 5))
}

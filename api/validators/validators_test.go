package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/quoteflow-backend/pkg/errors"
)

type costBody struct {
	MaterialCost decimal.Decimal `json:"materialCost" validate:"gte=0"`
	Notes        string          `json:"notes" validate:"max=10"`
}

type cancelBody struct {
	Reason string `json:"reason" validate:"max=20"`
}

type itemsBody struct {
	Items []struct {
		Name string `json:"name" validate:"required"`
	} `json:"items" validate:"required,min=1,dive"`
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDecodeJSONBodyRejectsNegativeDecimal(t *testing.T) {
	var dest costBody
	err := DecodeJSONBody(jsonRequest(`{"materialCost":"-1.50"}`), &dest)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "materialCost")
}

func TestDecodeJSONBodyAcceptsDecimal(t *testing.T) {
	var dest costBody
	require.NoError(t, DecodeJSONBody(jsonRequest(`{"materialCost":12.25}`), &dest))
	require.True(t, dest.MaterialCost.Equal(decimal.RequireFromString("12.25")))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest costBody
	err := DecodeJSONBody(jsonRequest(`{"materialCost":1,"surprise":true}`), &dest)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	var dest cancelBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", nil), &dest)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecodeOptionalJSONBodyAllowsEmpty(t *testing.T) {
	var dest cancelBody
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPost, "/", nil), &dest))
	require.Empty(t, dest.Reason)

	err := DecodeOptionalJSONBody(jsonRequest(`{"reason":"`+strings.Repeat("a", 21)+`"}`), &dest)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecodeJSONBodyReportsNestedPaths(t *testing.T) {
	var dest itemsBody
	err := DecodeJSONBody(jsonRequest(`{"items":[{"name":"bolt"},{"name":""}]}`), &dest)
	require.Error(t, err)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["items[1].name"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30", nil)
	got, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 30, got)

	got, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, got)

	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), "limit", 20, 1, 100)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestParseQueryBool(t *testing.T) {
	got, err := ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?active=false", nil), "active")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.False(t, *got)

	got, err = ParseQueryBool(httptest.NewRequest(http.MethodGet, "/", nil), "active")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = ParseQueryBool(httptest.NewRequest(http.MethodGet, "/?active=maybe", nil), "active")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "hello", SanitizeString("  hello \x00 ", 0))
	require.Equal(t, "héll", SanitizeString("héllo", 4))
	require.Equal(t, "line\none", SanitizeString("line\none", 0))
}

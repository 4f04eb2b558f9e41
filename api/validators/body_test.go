package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

type reservePayload struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Reason    string `json:"reason,omitempty" validate:"omitempty,max=5"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=stock_in stock_out"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/inventory/reserve", strings.NewReader(body))
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	var p reservePayload
	err := DecodeJSONBody(post(`{"productId":"9b2f1f4e-9c55-4a7e-9a0c-2f7c1d9e4b11","quantity":2}`), &p)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Quantity)
}

func TestDecodeJSONBodyReportsJSONFieldNames(t *testing.T) {
	var p reservePayload
	err := DecodeJSONBody(post(`{"productId":"nope","quantity":0,"reason":"too long","type":"gift"}`), &p)
	details := detailsOf(t, err)
	assert.Equal(t, "must be a valid UUID", details["productId"])
	assert.Equal(t, "is required", details["quantity"])
	assert.Equal(t, "must be at most 5 characters", details["reason"])
	assert.Equal(t, "must be one of: stock_in, stock_out", details["type"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"syntax":        `{"quantity":`,
		"wrong type":    `{"quantity":"two"}`,
		"unknown field": `{"quantity":1,"warehouse":"main"}`,
		"two objects":   `{"quantity":1}{"quantity":2}`,
		"too large":     `{"reason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		var p reservePayload
		err := DecodeJSONBody(post(body), &p)
		typed := pkgerrors.As(err)
		if assert.NotNil(t, typed, name) {
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code(), name)
		}
	}

	var p reservePayload
	err := DecodeJSONBody(post(`{"quantity":1,"warehouse":"main"}`), &p)
	assert.Equal(t, "request body has an unknown field", pkgerrors.As(err).Message())
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/history?page=3&limit=500&bad=x", nil)

	page, err := ParseQueryInt(req, "page", 1, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	def, err := ParseQueryInt(req, "threshold", 10, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, def)

	_, err = ParseQueryInt(req, "limit", 20, 1, 100)
	assert.Equal(t, "must be at most 100", detailsOf(t, err)["limit"])

	_, err = ParseQueryInt(req, "bad", 0, 0, 1)
	assert.Equal(t, "must be an integer", detailsOf(t, err)["bad"])
}

package registry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(logger, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestLookupLegalEntityFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check-vat-number", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BE", req["countryCode"])
		assert.Equal(t, "0411905847", req["vatNumber"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"valid":   true,
			"name":    "ACME BV",
			"address": "Main St 1, 1000 Brussels",
		})
	})

	// Formatting noise is normalized away before the register call.
	entity, found, err := c.LookupLegalEntity(context.Background(), "be 0411.905.847")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ACME BV", entity["name"])
	assert.Equal(t, "BE0411905847", entity["vatNumber"])
}

func TestLookupLegalEntityNotRegistered(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": false})
	})

	entity, found, err := c.LookupLegalEntity(context.Background(), "BE0999999999")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, entity)
}

func TestLookupLegalEntityErrors(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := c.LookupLegalEntity(context.Background(), "BE0411905847")
	assert.Error(t, err)

	_, _, err = c.LookupLegalEntity(context.Background(), "BE")
	assert.Error(t, err, "too short to split into country code and number")
}

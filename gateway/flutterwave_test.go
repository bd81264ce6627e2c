package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlutterwaveVerifyWebhook(t *testing.T) {
	f := NewFlutterwave("sk", "my-secret-hash", "https://shop.test/callback")

	assert.True(t, f.VerifyWebhook(nil, "my-secret-hash"))
	assert.False(t, f.VerifyWebhook(nil, "wrong-hash"))
	assert.False(t, f.VerifyWebhook(nil, ""))

	// an unset secret hash must never verify anything
	unset := NewFlutterwave("sk", "", "cb")
	assert.False(t, unset.VerifyWebhook(nil, ""))
}

func TestFlutterwaveParseEvent(t *testing.T) {
	f := NewFlutterwave("sk", "hash", "cb")

	t.Run("successful charge", func(t *testing.T) {
		ev, err := f.ParseEvent([]byte(`{"event":"charge.completed","data":{"tx_ref":"flw_1","flw_ref":"FLW-123","status":"successful","amount":250}}`))
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, ev.Outcome)
		assert.Equal(t, "flw_1", ev.Reference)
		assert.Equal(t, "FLW-123", ev.ProviderRef)
		assert.Equal(t, float64(250), ev.Amount)
	})

	t.Run("non-successful status is a failure", func(t *testing.T) {
		ev, err := f.ParseEvent([]byte(`{"event":"charge.completed","data":{"tx_ref":"flw_2","status":"failed"}}`))
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, ev.Outcome)
	})

	t.Run("missing tx_ref is ignored", func(t *testing.T) {
		ev, err := f.ParseEvent([]byte(`{"event":"transfer.completed","data":{"status":"successful"}}`))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, ev.Outcome)
	})
}

func TestFlutterwaveInit(t *testing.T) {
	t.Run("returns the hosted link", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments", r.URL.Path)
			assert.Equal(t, "Bearer sk_flw", r.Header.Get("Authorization"))
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &got))
			w.Write([]byte(`{"status":"success","data":{"link":"https://checkout.flutterwave.com/xyz"}}`))
		}))
		defer srv.Close()

		f := NewFlutterwave("sk_flw", "hash", "https://shop.test/callback")
		f.BaseURL = srv.URL

		url, err := f.Init(context.Background(), "ada@example.com", 250, "flw_ref", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.flutterwave.com/xyz", url)
		assert.Equal(t, "flw_ref", got["tx_ref"])
		assert.Equal(t, float64(250), got["amount"])
		assert.Equal(t, "NGN", got["currency"])
	})

	t.Run("provider rejection surfaces as an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status":"error","message":"Invalid authorization"}`))
		}))
		defer srv.Close()

		f := NewFlutterwave("sk_bad", "hash", "cb")
		f.BaseURL = srv.URL

		_, err := f.Init(context.Background(), "ada@example.com", 10, "flw_ref", nil)
		assert.ErrorContains(t, err, "Invalid authorization")
	})
}

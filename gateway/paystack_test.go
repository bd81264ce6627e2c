package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPaystack(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackVerifyWebhook(t *testing.T) {
	p := NewPaystack("sk_test_secret", "https://shop.test/callback")
	body := []byte(`{"event":"charge.success"}`)

	assert.True(t, p.VerifyWebhook(body, signPaystack("sk_test_secret", body)))
	assert.False(t, p.VerifyWebhook(body, signPaystack("wrong_secret", body)))
	assert.False(t, p.VerifyWebhook(body, ""))
	// signature over a different body must not verify
	assert.False(t, p.VerifyWebhook([]byte(`{"event":"charge.failed"}`), signPaystack("sk_test_secret", body)))
}

func TestPaystackParseEvent(t *testing.T) {
	p := NewPaystack("sk", "cb")

	t.Run("charge.success", func(t *testing.T) {
		ev, err := p.ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"ps_1","id":12345,"amount":150000}}`))
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, ev.Outcome)
		assert.Equal(t, "ps_1", ev.Reference)
		assert.Equal(t, "12345", ev.ProviderRef)
		assert.Equal(t, float64(1500), ev.Amount) // kobo back to major units
	})

	t.Run("charge.failed and charge.dispute map to failure", func(t *testing.T) {
		for _, name := range []string{"charge.failed", "charge.dispute"} {
			ev, err := p.ParseEvent([]byte(`{"event":"` + name + `","data":{"reference":"ps_2"}}`))
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, ev.Outcome)
		}
	})

	t.Run("unknown event ignored", func(t *testing.T) {
		ev, err := p.ParseEvent([]byte(`{"event":"transfer.success","data":{"reference":"ps_3"}}`))
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, ev.Outcome)
	})

	t.Run("garbage errors", func(t *testing.T) {
		_, err := p.ParseEvent([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestPaystackInit(t *testing.T) {
	t.Run("sends kobo and returns the hosted link", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &got))
			w.Write([]byte(`{"status":true,"data":{"authorization_url":"https://checkout.paystack.com/abc"}}`))
		}))
		defer srv.Close()

		p := NewPaystack("sk_test", "https://shop.test/callback")
		p.BaseURL = srv.URL

		url, err := p.Init(context.Background(), "ada@example.com", 59.99, "ps_ref", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc", url)
		assert.Equal(t, float64(5999), got["amount"])
		assert.Equal(t, "ps_ref", got["reference"])
		assert.Equal(t, "ada@example.com", got["email"])
	})

	t.Run("provider rejection surfaces as an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
		}))
		defer srv.Close()

		p := NewPaystack("sk_bad", "cb")
		p.BaseURL = srv.URL

		_, err := p.Init(context.Background(), "ada@example.com", 10, "ps_ref", nil)
		assert.ErrorContains(t, err, "Invalid key")
	})
}

func TestPaystackReferences(t *testing.T) {
	p := NewPaystack("sk", "cb")
	a, b := p.NewReference(), p.NewReference()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "ps_")
}

package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const paystackBaseURL = "https://api.paystack.co"

// Paystack returns a hosted checkout link keyed by our reference and signs
// webhook deliveries with HMAC-SHA512 over the exact raw body.
type Paystack struct {
	SecretKey   string
	CallbackURL string
	BaseURL     string
	HTTPClient  *http.Client
}

func NewPaystack(secretKey, callbackURL string) *Paystack {
	return &Paystack{
		SecretKey:   secretKey,
		CallbackURL: callbackURL,
		BaseURL:     paystackBaseURL,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *Paystack) Name() string { return "paystack" }

func (p *Paystack) NewReference() string { return newReference("ps") }

func (p *Paystack) SignatureHeader() string { return "x-paystack-signature" }

func (p *Paystack) Init(ctx context.Context, email string, amount float64, reference string, meta map[string]any) (string, error) {
	payload := map[string]any{
		"email":        email,
		"amount":       int64(amount * 100), // Paystack wants kobo
		"reference":    reference,
		"callback_url": p.CallbackURL,
		"metadata":     meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paystack initialize: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("paystack initialize: decode: %w", err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return "", fmt.Errorf("paystack initialize: %s", out.Message)
	}
	return out.Data.AuthorizationURL, nil
}

// VerifyWebhook recomputes the digest over the raw request body and compares
// it with the header-supplied signature.
func (p *Paystack) VerifyWebhook(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (p *Paystack) ParseEvent(body []byte) (Event, error) {
	var envelope struct {
		Event string `json:"event"`
		Data  struct {
			Reference string          `json:"reference"`
			ID        json.RawMessage `json:"id"`
			Amount    float64         `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, err
	}

	ev := Event{
		Reference:   envelope.Data.Reference,
		ProviderRef: string(envelope.Data.ID),
		Amount:      envelope.Data.Amount / 100,
	}
	switch envelope.Event {
	case "charge.success":
		ev.Outcome = OutcomeSuccess
	case "charge.failed", "charge.dispute":
		ev.Outcome = OutcomeFailed
	default:
		ev.Outcome = OutcomeIgnored
	}
	return ev, nil
}

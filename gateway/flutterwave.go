package gateway

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// Flutterwave is the "charge event" style provider: its webhook carries a
// provider-chosen flw_ref next to the echoed tx_ref, and deliveries are
// authenticated by a precomputed secret hash header rather than an HMAC.
type Flutterwave struct {
	SecretKey   string
	SecretHash  string
	RedirectURL string
	BaseURL     string
	HTTPClient  *http.Client
}

func NewFlutterwave(secretKey, secretHash, redirectURL string) *Flutterwave {
	return &Flutterwave{
		SecretKey:   secretKey,
		SecretHash:  secretHash,
		RedirectURL: redirectURL,
		BaseURL:     flutterwaveBaseURL,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *Flutterwave) Name() string { return "flutterwave" }

func (f *Flutterwave) NewReference() string { return newReference("flw") }

func (f *Flutterwave) SignatureHeader() string { return "verif-hash" }

func (f *Flutterwave) Init(ctx context.Context, email string, amount float64, reference string, meta map[string]any) (string, error) {
	payload := map[string]any{
		"tx_ref":       reference,
		"amount":       amount,
		"currency":     "NGN",
		"redirect_url": f.RedirectURL,
		"customer":     map[string]string{"email": email},
		"meta":         meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+f.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("flutterwave payments: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("flutterwave payments: decode: %w", err)
	}
	if out.Status != "success" || out.Data.Link == "" {
		return "", fmt.Errorf("flutterwave payments: %s", out.Message)
	}
	return out.Data.Link, nil
}

// VerifyWebhook compares the configured secret hash with the header value.
func (f *Flutterwave) VerifyWebhook(_ []byte, signature string) bool {
	if f.SecretHash == "" || signature == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(f.SecretHash), []byte(signature)) == 1
}

func (f *Flutterwave) ParseEvent(body []byte) (Event, error) {
	var envelope struct {
		Event string `json:"event"`
		Data  struct {
			TxRef  string  `json:"tx_ref"`
			FlwRef string  `json:"flw_ref"`
			Status string  `json:"status"`
			Amount float64 `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, err
	}

	ev := Event{
		Reference:   envelope.Data.TxRef,
		ProviderRef: envelope.Data.FlwRef,
		Amount:      envelope.Data.Amount,
	}
	if ev.Reference == "" {
		ev.Outcome = OutcomeIgnored
		return ev, nil
	}
	if envelope.Data.Status == "successful" {
		ev.Outcome = OutcomeSuccess
	} else {
		ev.Outcome = OutcomeFailed
	}
	return ev, nil
}

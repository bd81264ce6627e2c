// Package gateway adapts external payment providers behind one contract.
// The engine only ever reconciles on the reference it generated itself;
// provider-assigned identifiers ride along as opaque metadata.
package gateway

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a webhook event for the lifecycle engine.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)

// Event is the provider-neutral view of a webhook payload.
type Event struct {
	Reference   string // the reference this module generated at init time
	Outcome     Outcome
	ProviderRef string  // provider-chosen id, opaque
	Amount      float64 // as reported by the provider, informational only
}

// Gateway is the provider contract: obtain a hosted payment link, verify a
// webhook delivery, and decode its event envelope.
type Gateway interface {
	Name() string
	Init(ctx context.Context, email string, amount float64, reference string, meta map[string]any) (authorizationURL string, err error)
	SignatureHeader() string
	VerifyWebhook(body []byte, signature string) bool
	ParseEvent(body []byte) (Event, error)
	NewReference() string
}

// newReference builds a prefixed, random-suffixed timestamp token. The
// store's unique index backstops the negligible collision probability.
func newReference(prefix string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}

// Package webhooks terminates payment-provider callbacks. Deliveries are
// authenticated against the provider's signature scheme, translated to a
// neutral event, and handed to the lifecycle engine for settlement.
package webhooks

import (
	"context"
	"io"
	"log"
	"net/http"

	"soko/gateway"
	"soko/models"
	"soko/utils"

	"github.com/julienschmidt/httprouter"
)

// Settler is the slice of the lifecycle engine the webhook surface needs.
type Settler interface {
	HandleSuccessfulPayment(ctx context.Context, reference string, ev gateway.Event) (*models.Order, error)
	HandleFailedPayment(ctx context.Context, reference string, ev gateway.Event) (*models.Order, error)
}

type Handlers struct {
	settler Settler
}

func NewHandlers(settler Settler) *Handlers {
	return &Handlers{settler: settler}
}

// Receive builds the httprouter handle for one provider adapter.
//
// Contract with providers: an unverifiable signature is rejected with 401,
// but once the delivery is authenticated the endpoint acknowledges with 200
// no matter what happens internally. Providers retry on non-2xx, and a
// retry of a settled reference is a no-op anyway; surfacing internal errors
// would only cause retry storms.
func (h *Handlers) Receive(gw gateway.Gateway) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Unable to read request body")
			return
		}

		if !gw.VerifyWebhook(body, r.Header.Get(gw.SignatureHeader())) {
			log.Printf("webhook: rejected %s delivery with bad signature", gw.Name())
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}

		ev, err := gw.ParseEvent(body)
		if err != nil {
			log.Printf("webhook: unparseable %s payload: %v", gw.Name(), err)
			h.ack(w)
			return
		}

		switch ev.Outcome {
		case gateway.OutcomeSuccess:
			if _, err := h.settler.HandleSuccessfulPayment(r.Context(), ev.Reference, ev); err != nil {
				log.Printf("webhook: settling %s success for ref %s: %v", gw.Name(), ev.Reference, err)
			}
		case gateway.OutcomeFailed:
			if _, err := h.settler.HandleFailedPayment(r.Context(), ev.Reference, ev); err != nil {
				log.Printf("webhook: settling %s failure for ref %s: %v", gw.Name(), ev.Reference, err)
			}
		default:
			log.Printf("webhook: ignoring %s event for ref %q", gw.Name(), ev.Reference)
		}

		h.ack(w)
	}
}

func (h *Handlers) ack(w http.ResponseWriter) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Webhook processed successfully"})
}

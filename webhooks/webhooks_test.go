package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soko/gateway"
	"soko/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	verify bool
	event  gateway.Event
	err    error
}

func (s *stubGateway) Name() string            { return "stub" }
func (s *stubGateway) NewReference() string    { return "stub_ref" }
func (s *stubGateway) SignatureHeader() string { return "x-stub-signature" }

func (s *stubGateway) Init(context.Context, string, float64, string, map[string]any) (string, error) {
	return "", errors.New("not used")
}

func (s *stubGateway) VerifyWebhook([]byte, string) bool { return s.verify }

func (s *stubGateway) ParseEvent([]byte) (gateway.Event, error) { return s.event, s.err }

type recordingSettler struct {
	successRefs []string
	failedRefs  []string
	err         error
}

func (r *recordingSettler) HandleSuccessfulPayment(_ context.Context, ref string, _ gateway.Event) (*models.Order, error) {
	r.successRefs = append(r.successRefs, ref)
	return &models.Order{}, r.err
}

func (r *recordingSettler) HandleFailedPayment(_ context.Context, ref string, _ gateway.Event) (*models.Order, error) {
	r.failedRefs = append(r.failedRefs, ref)
	return &models.Order{}, r.err
}

func deliver(t *testing.T, gw gateway.Gateway, settler Settler, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandlers(settler)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stub", strings.NewReader(body))
	req.Header.Set(gw.SignatureHeader(), "whatever")
	rec := httptest.NewRecorder()
	h.Receive(gw)(rec, req, nil)
	return rec
}

func TestReceive(t *testing.T) {
	t.Run("bad signature rejected with 401", func(t *testing.T) {
		settler := &recordingSettler{}
		rec := deliver(t, &stubGateway{verify: false}, settler, "{}")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, settler.successRefs)
		assert.Empty(t, settler.failedRefs)
	})

	t.Run("success event settles and acks", func(t *testing.T) {
		settler := &recordingSettler{}
		gw := &stubGateway{verify: true, event: gateway.Event{Reference: "ref1", Outcome: gateway.OutcomeSuccess}}
		rec := deliver(t, gw, settler, "{}")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ref1"}, settler.successRefs)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Webhook processed successfully", body["message"])
	})

	t.Run("failed event settles as failure", func(t *testing.T) {
		settler := &recordingSettler{}
		gw := &stubGateway{verify: true, event: gateway.Event{Reference: "ref2", Outcome: gateway.OutcomeFailed}}
		rec := deliver(t, gw, settler, "{}")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ref2"}, settler.failedRefs)
	})

	t.Run("ignored event acks without settling", func(t *testing.T) {
		settler := &recordingSettler{}
		gw := &stubGateway{verify: true, event: gateway.Event{Outcome: gateway.OutcomeIgnored}}
		rec := deliver(t, gw, settler, "{}")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, settler.successRefs)
		assert.Empty(t, settler.failedRefs)
	})

	t.Run("unparseable payload still acks", func(t *testing.T) {
		settler := &recordingSettler{}
		gw := &stubGateway{verify: true, err: errors.New("bad json")}
		rec := deliver(t, gw, settler, "not-json")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("internal settle error still acks", func(t *testing.T) {
		settler := &recordingSettler{err: errors.New("db down")}
		gw := &stubGateway{verify: true, event: gateway.Event{Reference: "ref3", Outcome: gateway.OutcomeSuccess}}
		rec := deliver(t, gw, settler, "{}")

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

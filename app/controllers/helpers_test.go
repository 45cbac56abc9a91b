package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/notify"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/retryqueue"
	"github.com/ManuelReschke/PaddleSync/internal/pkg/usercontext"
)

const testSecret = "whsec_test"

var eventTime = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type pipeline struct {
	repo     *billing.MemoryRepository
	retries  *retryqueue.MemoryStore
	queue    *retryqueue.Queue
	counters *counter.MemoryCounter
	alerts   *notify.Recorder
	verifier *billing.SignatureVerifier
	service  *billing.Service
}

func newPipeline() *pipeline {
	p := &pipeline{
		repo:     billing.NewMemoryRepository(),
		retries:  retryqueue.NewMemoryStore(),
		counters: counter.NewMemoryCounter(),
		alerts:   &notify.Recorder{},
		verifier: billing.NewSignatureVerifier(testSecret),
	}
	processor := billing.NewProcessor(p.repo, p.counters, p.alerts)
	p.queue = retryqueue.NewQueue(p.retries, retryqueue.DefaultPolicy(), p.alerts)
	p.service = billing.NewService(p.repo,
		map[string]billing.Verifier{billing.ProviderPaddle: p.verifier},
		processor, p.queue, p.alerts)
	return p
}

type sweepFunc func(ctx context.Context, batchSize int) (retryqueue.SweepResult, error)

func (f sweepFunc) Sweep(ctx context.Context, batchSize int) (retryqueue.SweepResult, error) {
	return f(ctx, batchSize)
}

func fixedSweep(res retryqueue.SweepResult, err error) sweepFunc {
	return func(context.Context, int) (retryqueue.SweepResult, error) { return res, err }
}

// asAdmin stands in for the session middleware.
func asAdmin(email string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(usercontext.LocalsKey, usercontext.UserContext{Email: email, IsLoggedIn: true, IsAdmin: true})
		return c.Next()
	}
}

func subscriptionPayload(t *testing.T, eventID, eventType, subID, status string) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{
		"event_id":    eventID,
		"event_type":  eventType,
		"occurred_at": eventTime.Format(time.RFC3339Nano),
		"data": map[string]any{
			"id":          subID,
			"status":      status,
			"customer_id": "ctm_1",
			"custom_data": map[string]any{"user_id": "42"},
		},
	})
}

func transactionPayload(t *testing.T, eventID, eventType, txID, subID string) []byte {
	t.Helper()
	return mustJSON(t, map[string]any{
		"event_id":    eventID,
		"event_type":  eventType,
		"occurred_at": eventTime.Format(time.RFC3339Nano),
		"data": map[string]any{
			"id":              txID,
			"status":          "completed",
			"subscription_id": subID,
			"billed_at":       eventTime.Format(time.RFC3339),
		},
	})
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func webhookRequest(provider string, payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/"+provider, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	return req
}

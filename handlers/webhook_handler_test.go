package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/jmulders/ccv_reconciler/configs"
	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/models"
	"github.com/jmulders/ccv_reconciler/reconcile"
	"github.com/jmulders/ccv_reconciler/store"
)

func newWebhookApp(st store.OrderStore, gw gateway.Gateway) *fiber.App {
	h := &PaymentHandler{
		Store:   st,
		Gateway: gw,
		Dispatcher: &reconcile.Dispatcher{
			Gateway:  gw,
			Settings: config.Settings{},
			Hooks:    reconcile.NopHooks{},
		},
	}
	app := fiber.New()
	app.Post("/api/v1/payments/webhook", h.HandleWebhook)
	return app
}

func webhookOrder(total string) *models.Order {
	id := uuid.New()
	return &models.Order{
		ID:                   id,
		Status:               models.OrderStatusCreated,
		CustomerEmail:        "customer@example.com",
		TotalGrossAmount:     decimal.RequireFromString(total),
		Currency:             "EUR",
		AccessToken:          uuid.NewString(),
		TransactionReference: "tr-" + id.String()[:8],
		Instrument:           models.PaymentInstrument{OrderID: id, TransactionType: models.TransactionTypeSale},
	}
}

func postWebhook(t *testing.T, app *fiber.App, ref, token, transactionID string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"id": transactionID})
	require.NoError(t, err)

	url := fmt.Sprintf("/api/v1/payments/webhook?ref=%s&token=%s", ref, token)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestWebhook_MissingParams(t *testing.T) {
	app := newWebhookApp(store.NewMemoryStore(), gateway.NewMock())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_UnknownOrder(t *testing.T) {
	app := newWebhookApp(store.NewMemoryStore(), gateway.NewMock())

	resp := postWebhook(t, app, uuid.NewString(), "some-token", "tr-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhook_AlreadyResolvedIsBenignNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	mock := gateway.NewMock()

	order := webhookOrder("50.00")
	order.Status = models.OrderStatusOpen
	st.Put(order)

	app := newWebhookApp(st, mock)
	resp := postWebhook(t, app, order.ID.String(), order.AccessToken, order.TransactionReference)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["success"])
	assert.Empty(t, mock.Calls, "an already resolved order must not be reprocessed")
}

func TestWebhook_ReferenceMismatchIsFatal(t *testing.T) {
	st := store.NewMemoryStore()
	order := webhookOrder("50.00")
	st.Put(order)

	app := newWebhookApp(st, gateway.NewMock())
	resp := postWebhook(t, app, order.ID.String(), order.AccessToken, "tr-forged")

	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	saved, _ := st.GetOrder(order.ID.String())
	assert.Equal(t, models.OrderStatusCreated, saved.Status)
}

func TestWebhook_AuthorizesOrder(t *testing.T) {
	st := store.NewMemoryStore()
	mock := gateway.NewMock()

	order := webhookOrder("50.00")
	st.Put(order)
	mock.Snapshots[order.TransactionReference] = gateway.TransactionSnapshot{
		Reference: order.TransactionReference,
		Status:    gateway.StatusSuccess,
		Amount:    decimal.RequireFromString("50.00"),
		Currency:  "EUR",
		Method:    "ideal",
	}

	app := newWebhookApp(st, mock)
	resp := postWebhook(t, app, order.ID.String(), order.AccessToken, order.TransactionReference)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["success"])

	saved, _ := st.GetOrder(order.ID.String())
	assert.Equal(t, models.OrderStatusOpen, saved.Status)
	assert.Equal(t, "CCV_IDEAL", saved.Instrument.Method)
}

func TestWebhook_TransportErrorStillAcknowledged(t *testing.T) {
	st := store.NewMemoryStore()
	mock := gateway.NewMock()
	mock.Err = &gateway.Error{Message: "gateway timeout"}

	order := webhookOrder("50.00")
	st.Put(order)

	app := newWebhookApp(st, mock)
	resp := postWebhook(t, app, order.ID.String(), order.AccessToken, order.TransactionReference)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "dispatch failures are logged, not surfaced to the gateway")
	assert.Equal(t, true, decodeBody(t, resp)["success"])

	saved, _ := st.GetOrder(order.ID.String())
	assert.Equal(t, models.OrderStatusCreated, saved.Status, "order stays untouched for the next poll")
}

func TestWebhook_FailedPaymentFailsOrder(t *testing.T) {
	st := store.NewMemoryStore()
	mock := gateway.NewMock()

	order := webhookOrder("50.00")
	st.Put(order)
	mock.Snapshots[order.TransactionReference] = gateway.TransactionSnapshot{
		Reference:   order.TransactionReference,
		Status:      gateway.StatusFailed,
		FailureCode: "card_declined",
		Amount:      decimal.RequireFromString("50.00"),
		Currency:    "EUR",
		Method:      "card",
	}

	app := newWebhookApp(st, mock)
	resp := postWebhook(t, app, order.ID.String(), order.AccessToken, order.TransactionReference)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	saved, _ := st.GetOrder(order.ID.String())
	assert.Equal(t, models.OrderStatusFailed, saved.Status)
	assert.Equal(t, "card_declined", saved.Instrument.FailureCode)
}

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/jmulders/ccv_reconciler/configs"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.Settings{
		GatewayBaseURL: serverURL,
		GatewayAPIKey:  "test-api-key",
		GatewayTimeout: 2 * time.Second,
	})
}

func TestGetTransaction_MissingReference(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetTransaction("")

	assert.ErrorIs(t, err, ErrMissingReference)
	assert.Equal(t, 0, calls, "no network call may happen for an empty reference")
}

func TestGetTransactions_MissingReferences(t *testing.T) {
	client := newTestClient("http://localhost:0")
	_, err := client.GetTransactions(nil)
	assert.ErrorIs(t, err, ErrMissingReferences)
}

func TestGetTransaction_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "test-api-key", user)
		assert.Equal(t, "", pass)
		assert.Equal(t, "/transaction", r.URL.Path)
		assert.Equal(t, "ref-123", r.URL.Query().Get("reference"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"reference": "ref-123",
			"status":    "SUCCESS",
			"amount":    "50.00",
			"currency":  "EUR",
			"method":    "ideal",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	snapshot, err := client.GetTransaction("ref-123")

	require.NoError(t, err)
	assert.Equal(t, "ref-123", snapshot.Reference)
	assert.Equal(t, StatusSuccess, snapshot.Status, "status must be normalized to lowercase")
	assert.True(t, snapshot.Amount.Equal(decimal.RequireFromString("50.00")))
}

func TestGetTransaction_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "transaction not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetTransaction("ref-404")

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	assert.Contains(t, gwErr.Message, "transaction not found")
}

func TestGetTransaction_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL)
	_, err := client.GetTransaction("ref-123")

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
}

func TestGetTransactions_BatchesReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a,b,c", r.URL.Query().Get("references"))
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"reference": "a", "status": "Pending"},
			{"reference": "b", "status": "success"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	snapshots, err := client.GetTransactions([]string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, StatusPending, snapshots[0].Status)
	assert.Equal(t, StatusSuccess, snapshots[1].Status)
}

func TestRefund_SendsAmountOnlyWhenSupplied(t *testing.T) {
	var bodies []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refund", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		json.NewEncoder(w).Encode(map[string]interface{}{"reference": "rf-1", "status": "pending"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	amount := decimal.RequireFromString("12.50")
	_, err := client.Refund("ref-1", &amount, "partial refund")
	require.NoError(t, err)

	_, err = client.Refund("ref-1", nil, "full refund")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], "amount")
	assert.NotContains(t, bodies[1], "amount")
}

func TestReverse_NeverSendsAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reversal", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "amount")
		json.NewEncoder(w).Encode(map[string]interface{}{"reference": "rv-1", "status": "pending"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	snapshot, err := client.Reverse("ref-1", "void authorization")

	require.NoError(t, err)
	assert.Equal(t, "rv-1", snapshot.Reference)
}

func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment", r.URL.Path)

		var req PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ideal", req.Method)

		json.NewEncoder(w).Encode(PaymentResponse{Reference: "ref-new", PayURL: "https://pay.example/p/ref-new"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.CreatePayment(PaymentRequest{
		Amount:   decimal.RequireFromString("50.00"),
		Currency: "EUR",
		Method:   "ideal",
	})

	require.NoError(t, err)
	assert.Equal(t, "ref-new", resp.Reference)
	assert.Equal(t, "https://pay.example/p/ref-new", resp.PayURL)
}

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseRefundFlow(t *testing.T) {
	app := newTestApp(t)
	customerID := uuid.NewString()

	resp, body := app.post(t, "/api/v1/payments/purchase", map[string]any{
		"customer_id":   customerID,
		"amount":        "100.00",
		"currency":      "USD",
		"payment_nonce": "tok-visa",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := data(t, body)
	assert.Equal(t, "CAPTURED", order["status"])
	orderID := order["id"].(string)

	// Two partial refunds within the captured total.
	for _, amount := range []string{"30.00", "50.00"} {
		resp, body = app.post(t, "/api/v1/payments/"+orderID+"/refund", map[string]any{
			"amount":         amount,
			"currency":       "USD",
			"card_last_four": "1111",
		}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, amount, data(t, body)["amount"])
	}

	// A third refund pushing the total over the captured amount is rejected.
	resp, body = app.post(t, "/api/v1/payments/"+orderID+"/refund", map[string]any{
		"amount":         "30.00",
		"currency":       "USD",
		"card_last_four": "1111",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_AMOUNT", body["error_code"])

	// The remaining 20.00 still goes through.
	resp, _ = app.post(t, "/api/v1/payments/"+orderID+"/refund", map[string]any{
		"amount":         "20.00",
		"currency":       "USD",
		"card_last_four": "1111",
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = app.get(t, "/api/v1/payments/"+orderID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "REFUNDED", data(t, body)["status"])
}

func TestAuthorizeCaptureCancelFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post(t, "/api/v1/payments/authorize", map[string]any{
		"customer_id":   uuid.NewString(),
		"amount":        "60.00",
		"currency":      "USD",
		"payment_nonce": "tok-visa",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := data(t, body)["id"].(string)
	assert.Equal(t, "AUTHORIZED", data(t, body)["status"])

	// Partial capture of the authorization.
	resp, body = app.post(t, "/api/v1/payments/"+orderID+"/capture", map[string]any{
		"amount":   "45.00",
		"currency": "USD",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CAPTURED", data(t, body)["status"])

	// Cancelling a captured order is rejected.
	resp, body = app.post(t, "/api/v1/payments/"+orderID+"/cancel", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", body["error_code"])

	// A separate authorization can still be voided.
	resp, body = app.post(t, "/api/v1/payments/authorize", map[string]any{
		"customer_id":   uuid.NewString(),
		"amount":        "10.00",
		"currency":      "USD",
		"payment_nonce": "tok-visa",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	secondID := data(t, body)["id"].(string)

	resp, body = app.post(t, "/api/v1/payments/"+secondID+"/cancel", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", data(t, body)["status"])
}

func TestDeclinedPurchaseRecordsFailedOrder(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post(t, "/api/v1/payments/purchase", map[string]any{
		"customer_id":   uuid.NewString(),
		"amount":        "25.00",
		"currency":      "USD",
		"payment_nonce": "declined-tok",
	}, nil)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "GATEWAY_DECLINED", body["error_code"])
}

func TestIdempotentPurchaseOverHTTP(t *testing.T) {
	app := newTestApp(t)
	headers := map[string]string{"Idempotency-Key": "idem-http-1"}
	payload := map[string]any{
		"customer_id":   uuid.NewString(),
		"amount":        "42.00",
		"currency":      "USD",
		"payment_nonce": "tok-visa",
	}

	resp1, body1 := app.post(t, "/api/v1/payments/purchase", payload, headers)
	resp2, body2 := app.post(t, "/api/v1/payments/purchase", payload, headers)

	require.Equal(t, http.StatusCreated, resp1.StatusCode)
	require.Equal(t, http.StatusCreated, resp2.StatusCode)
	assert.Equal(t, data(t, body1)["id"], data(t, body2)["id"])

	// Only one order was actually created.
	resp, body := app.get(t, "/api/v1/payments/" + data(t, body1)["id"].(string))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txs := data(t, body)["transactions"].([]any)
	assert.Len(t, txs, 1)

	// Same key, different payload is rejected.
	payload["amount"] = "999.00"
	resp3, body3 := app.post(t, "/api/v1/payments/purchase", payload, headers)
	assert.Equal(t, http.StatusConflict, resp3.StatusCode)
	assert.Equal(t, "DUPLICATE_REQUEST", body3["error_code"])
}

//go:build api

package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const engineURL = "http://localhost:8080"

func webhookSecret() string {
	if s := os.Getenv("STRIPE_WEBHOOK_SECRET"); s != "" {
		return s
	}
	return "whsec_test_secret"
}

// TestAPI_FullFlow drives a running engine end-to-end: deposit webhook,
// balance webhook, duplicate redelivery, admin lookups.
func TestAPI_FullFlow(t *testing.T) {
	waitForEngine(t)

	userID := fmt.Sprintf("user-%d", time.Now().UnixNano())
	depositEvent := fmt.Sprintf("evt_dep_%d", time.Now().UnixNano())
	balanceEvent := fmt.Sprintf("evt_bal_%d", time.Now().UnixNano())

	// Step 1: deposit webhook creates the booking
	t.Run("Step1_Deposit", func(t *testing.T) {
		payload := sessionPayload(depositEvent, map[string]string{
			"userId": userID, "tourId": "tour-1", "sessionId": "sess-1",
			"paymentType": "deposit", "quantity": "2", "sessionPrice": "1000",
			"tourTitle": "Dolomites Traverse",
		}, 50000)

		resp := postWebhook(t, payload)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]interface{}
		decodeJSON(t, resp, &body)
		assert.Equal(t, true, body["received"])
		assert.Equal(t, true, body["processed"])
	})

	// Step 2: redelivery of the same event id is a no-op
	t.Run("Step2_DuplicateDelivery", func(t *testing.T) {
		payload := sessionPayload(depositEvent, map[string]string{
			"userId": userID, "tourId": "tour-1", "sessionId": "sess-1",
			"paymentType": "deposit", "quantity": "2", "sessionPrice": "1000",
		}, 50000)

		resp := postWebhook(t, payload)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]interface{}
		decodeJSON(t, resp, &body)
		assert.Equal(t, true, body["duplicate"])
	})

	// Step 3: balance webhook settles it
	t.Run("Step3_Balance", func(t *testing.T) {
		payload := sessionPayload(balanceEvent, map[string]string{
			"userId": userID, "tourId": "tour-1", "sessionId": "sess-1",
			"paymentType": "balance", "quantity": "2", "sessionPrice": "1000",
		}, 150000)

		resp := postWebhook(t, payload)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]interface{}
		decodeJSON(t, resp, &body)
		assert.Equal(t, true, body["processed"])
	})

	// Step 4: unsigned request is rejected
	t.Run("Step4_UnsignedRejected", func(t *testing.T) {
		payload := sessionPayload("evt_unsigned", map[string]string{
			"userId": userID, "tourId": "tour-1", "sessionId": "sess-1",
			"paymentType": "deposit", "quantity": "1", "sessionPrice": "1000",
		}, 50000)

		req, err := http.NewRequest(http.MethodPost, engineURL+"/webhooks/stripe", bytes.NewReader([]byte(payload)))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func sessionPayload(eventID string, metadata map[string]string, amountTotal int64) string {
	envelope := map[string]interface{}{
		"id":   eventID,
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             "cs_" + eventID,
				"amount_total":   amountTotal,
				"payment_intent": "pi_" + eventID,
				"metadata":       metadata,
				"customer_details": map[string]interface{}{
					"email": "customer@example.com",
				},
			},
		},
	}
	body, _ := json.Marshal(envelope)
	return string(body)
}

func postWebhook(t *testing.T, payload string) *http.Response {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret()))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	signature := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequest(http.MethodPost, engineURL+"/webhooks/stripe", bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func waitForEngine(t *testing.T) {
	t.Helper()
	for i := 0; i < 30; i++ {
		resp, err := http.Get(engineURL + "/health")
		if err == nil && resp.StatusCode == 200 {
			resp.Body.Close()
			return
		}
		time.Sleep(time.Second)
	}
	t.Fatal("engine did not become ready")
}

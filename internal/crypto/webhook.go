// Package crypto provides webhook signature verification and at-rest
// encryption for the payment-processor signing secret.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// WebhookVerifier checks the authenticity of payment-processor webhooks.
// The processor signs each delivery with
// HMAC-SHA256(secret, timestamp + "." + body), hex-encoded, and sends the
// signature and the Unix timestamp in request headers. Verification happens
// before any event reaches the settlement engine.
type WebhookVerifier struct {
	secret []byte
	// Tolerance bounds how far the signed timestamp may drift from the
	// current time, limiting replay of captured deliveries.
	tolerance time.Duration

	now func() time.Time
}

// NewWebhookVerifier creates a verifier for the given shared secret.
// A non-positive tolerance disables the timestamp check.
func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify checks the signature over the raw request body. timestamp is the
// decimal Unix-seconds string from the delivery headers.
func (v *WebhookVerifier) Verify(timestamp string, body []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("crypto: missing webhook signature")
	}

	if v.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return fmt.Errorf("crypto: invalid webhook timestamp %q", timestamp)
		}
		drift := v.now().Sub(time.Unix(ts, 0))
		if drift < 0 {
			drift = -drift
		}
		if drift > v.tolerance {
			return fmt.Errorf("crypto: webhook timestamp outside tolerance")
		}
	}

	expected := v.Sign(timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("crypto: webhook signature mismatch")
	}
	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 signature for a timestamp and
// body. Exported for the processor simulator and tests.
func (v *WebhookVerifier) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

package crypto

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_ValidSignature(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", 5*time.Minute)
	body := []byte(`{"payment_ref":"pay-1"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	sig := v.Sign(ts, body)
	assert.NoError(t, v.Verify(ts, body, sig))
}

func TestVerify_TamperedBody(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", 5*time.Minute)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	sig := v.Sign(ts, []byte(`{"amount":100}`))
	err := v.Verify(ts, []byte(`{"amount":999}`), sig)
	assert.ErrorContains(t, err, "signature mismatch")
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := NewWebhookVerifier("whsec_a", 0)
	verifier := NewWebhookVerifier("whsec_b", 0)
	body := []byte(`{}`)

	sig := signer.Sign("1700000000", body)
	assert.Error(t, verifier.Verify("1700000000", body, sig))
}

func TestVerify_MissingSignature(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", 0)
	assert.ErrorContains(t, v.Verify("1700000000", []byte(`{}`), ""), "missing webhook signature")
}

func TestVerify_TimestampOutsideTolerance(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", 5*time.Minute)
	now := time.Now()
	v.now = func() time.Time { return now }

	body := []byte(`{}`)
	stale := strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10)
	sig := v.Sign(stale, body)

	assert.ErrorContains(t, v.Verify(stale, body, sig), "outside tolerance")

	// Future drift is rejected too.
	ahead := strconv.FormatInt(now.Add(6*time.Minute).Unix(), 10)
	sig = v.Sign(ahead, body)
	assert.ErrorContains(t, v.Verify(ahead, body, sig), "outside tolerance")
}

func TestVerify_GarbageTimestamp(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", 5*time.Minute)
	sig := v.Sign("not-a-number", []byte(`{}`))
	assert.ErrorContains(t, v.Verify("not-a-number", []byte(`{}`), sig), "invalid webhook timestamp")
}

func TestVerify_ZeroToleranceSkipsTimestampCheck(t *testing.T) {
	v := NewWebhookVerifier("whsec_test", 0)
	body := []byte(`{}`)
	// A decade-old timestamp still verifies when the check is disabled.
	ts := "1500000000"
	sig := v.Sign(ts, body)
	require.NoError(t, v.Verify(ts, body, sig))
}

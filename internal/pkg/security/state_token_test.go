package security

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "state-signing-secret"

func TestSignVerifyState_RoundTrip(t *testing.T) {
	payload, err := NewStatePayload(123456789)
	require.NoError(t, err)

	token, err := SignState(payload, testSecret)
	require.NoError(t, err)
	assert.NotContains(t, token, "123456789", "token must not expose the payload in cleartext")

	got, err := VerifyState(token, testSecret, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), got.TelegramID)
	assert.Equal(t, payload.Nonce, got.Nonce)
}

func TestVerifyState_WrongSecret(t *testing.T) {
	payload, err := NewStatePayload(1)
	require.NoError(t, err)
	token, err := SignState(payload, testSecret)
	require.NoError(t, err)

	_, err = VerifyState(token, "some-other-secret", 10*time.Minute)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyState_TamperedPayload(t *testing.T) {
	payload, err := NewStatePayload(1)
	require.NoError(t, err)
	token, err := SignState(payload, testSecret)
	require.NoError(t, err)

	// Re-sign nothing: swap the telegram_id inside the envelope while
	// keeping the original signature.
	bundled, err := base64.URLEncoding.DecodeString(token)
	require.NoError(t, err)
	var envelope stateEnvelope
	require.NoError(t, json.Unmarshal(bundled, &envelope))
	envelope.Payload = strings.Replace(envelope.Payload, `"telegram_id":1,`, `"telegram_id":2,`, 1)
	bundled, err = json.Marshal(envelope)
	require.NoError(t, err)

	_, err = VerifyState(base64.URLEncoding.EncodeToString(bundled), testSecret, 10*time.Minute)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyState_Expired(t *testing.T) {
	payload := StatePayload{
		TelegramID: 1,
		Timestamp:  time.Now().Add(-11 * time.Minute).UnixMilli(),
		Nonce:      "deadbeefdeadbeef",
	}
	token, err := SignState(payload, testSecret)
	require.NoError(t, err)

	_, err = VerifyState(token, testSecret, 10*time.Minute)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyState_Malformed(t *testing.T) {
	cases := []string{
		"",
		"not base64 at all!!",
		base64.URLEncoding.EncodeToString([]byte("not json")),
	}
	for _, token := range cases {
		_, err := VerifyState(token, testSecret, 10*time.Minute)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", token)
	}
}

func TestVerifyState_EnvelopeWithBadInnerPayload(t *testing.T) {
	// A correctly signed envelope whose payload is not valid JSON still
	// fails, but only after the signature held up.
	envelope := stateEnvelope{
		Payload:   "not json",
		Signature: signHex([]byte("not json"), testSecret),
	}
	bundled, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, err = VerifyState(base64.URLEncoding.EncodeToString(bundled), testSecret, 10*time.Minute)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSignState_RequiresSecret(t *testing.T) {
	_, err := SignState(StatePayload{TelegramID: 1}, "")
	assert.Error(t, err)

	_, err = VerifyState("whatever", "", 10*time.Minute)
	assert.Error(t, err)
}

func TestNewStatePayload_DistinctNonces(t *testing.T) {
	a, err := NewStatePayload(1)
	require.NoError(t, err)
	b, err := NewStatePayload(1)
	require.NoError(t, err)

	assert.Len(t, a.Nonce, 16)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// Authentication failures of the state token codec. Callers branch on
// these to pick a response; none of them carries request-specific detail.
var (
	ErrSignatureMismatch = errors.New("state token signature mismatch")
	ErrExpired           = errors.New("state token expired")
	ErrMalformed         = errors.New("malformed state token")
)

// StatePayload correlates an OAuth round trip with the Telegram user who
// started it. The nonce makes tokens issued concurrently for the same
// user distinct; used nonces are not tracked, so a token may be accepted
// more than once inside its validity window.
type StatePayload struct {
	TelegramID int64  `json:"telegram_id"`
	Timestamp  int64  `json:"ts"` // unix milliseconds
	Nonce      string `json:"nonce"`
}

type stateEnvelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// NewStatePayload builds a payload for the given user stamped with the
// current time and a fresh nonce.
func NewStatePayload(telegramID int64) (StatePayload, error) {
	nonce, err := NewNonce()
	if err != nil {
		return StatePayload{}, err
	}
	return StatePayload{
		TelegramID: telegramID,
		Timestamp:  time.Now().UnixMilli(),
		Nonce:      nonce,
	}, nil
}

// NewNonce returns 8 random bytes hex-encoded.
func NewNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignState serializes the payload, signs it with HMAC-SHA256 and wraps
// both in a base64 envelope safe to pass through a query parameter.
func SignState(payload StatePayload, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for state signing")
	}
	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	envelope := stateEnvelope{
		Payload:   string(serialized),
		Signature: signHex(serialized, secret),
	}
	bundled, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bundled), nil
}

// VerifyState decodes a token, checks the signature over the embedded
// serialized payload and rejects payloads older than maxAge. Any decode
// or parse failure is ErrMalformed; a signature check failure is reported
// before the payload is ever deserialized.
func VerifyState(token, secret string, maxAge time.Duration) (*StatePayload, error) {
	if secret == "" {
		return nil, errors.New("secret is required for state verification")
	}
	bundled, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrMalformed
	}
	var envelope stateEnvelope
	if err := json.Unmarshal(bundled, &envelope); err != nil {
		return nil, ErrMalformed
	}

	expected := signHex([]byte(envelope.Payload), secret)
	if !hmac.Equal([]byte(expected), []byte(envelope.Signature)) {
		return nil, ErrSignatureMismatch
	}

	var payload StatePayload
	if err := json.Unmarshal([]byte(envelope.Payload), &payload); err != nil {
		return nil, ErrMalformed
	}
	if time.Since(time.UnixMilli(payload.Timestamp)) > maxAge {
		return nil, ErrExpired
	}
	return &payload, nil
}

func signHex(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

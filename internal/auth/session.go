package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"vulnreg/internal/common"
	"vulnreg/internal/logging"
)

// sessionIDBytes is the size of the random session identifier (256 bits).
const sessionIDBytes = 32

// tokenDelimiter separates the JSON payload from its MAC inside the decoded
// token. The payload may itself contain this byte, so verification splits at
// the last occurrence.
const tokenDelimiter = '.'

// sessionPayload is the signed token payload. ExpiresAt is an absolute
// expiry in Unix milliseconds.
type sessionPayload struct {
	SessionID string `json:"session_id"`
	ExpiresAt int64  `json:"expires_at"`
}

// SessionIssuer mints and verifies stateless signed session tokens.
// The token is base64url(payload JSON || "." || base64url(mac)), a single
// opaque string. The payload is integrity-protected, not encrypted.
type SessionIssuer struct {
	now    func() time.Time
	logger logging.Logger
}

// NewSessionIssuer returns an issuer using the real clock.
func NewSessionIssuer(logger logging.Logger) *SessionIssuer {
	return NewSessionIssuerWithClock(time.Now, logger)
}

// NewSessionIssuerWithClock returns an issuer with an injectable clock,
// used by tests to cross expiry boundaries deterministically.
func NewSessionIssuerWithClock(now func() time.Time, logger logging.Logger) *SessionIssuer {
	return &SessionIssuer{now: now, logger: logger.With("module", "session")}
}

// Mint creates a token carrying a fresh random 256-bit session id and an
// absolute expiry of now + ttl, signed with an HMAC-SHA256 over the
// serialized payload using secret.
func (i *SessionIssuer) Mint(secret []byte, ttl time.Duration) (string, error) {
	id := base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(sessionIDBytes))

	payload, err := json.Marshal(sessionPayload{
		SessionID: id,
		ExpiresAt: i.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		return "", err
	}

	mac := computeMAC(secret, payload)

	raw := make([]byte, 0, len(payload)+1+base64.RawURLEncoding.EncodedLen(len(mac)))
	raw = append(raw, payload...)
	raw = append(raw, tokenDelimiter)
	raw = append(raw, base64.RawURLEncoding.EncodeToString(mac)...)

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify reports whether token carries a valid MAC under secret and has not
// expired. Any decode, parse, or comparison failure yields false; callers
// are never told why a token was rejected.
func (i *SessionIssuer) Verify(secret []byte, token string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}

	// Split at the last delimiter: the JSON payload may legitimately contain
	// the delimiter byte, the appended MAC encoding cannot.
	idx := bytes.LastIndexByte(raw, tokenDelimiter)
	if idx < 0 {
		return false
	}
	payload, macPart := raw[:idx], raw[idx+1:]

	wantMAC, err := base64.RawURLEncoding.DecodeString(string(macPart))
	if err != nil {
		return false
	}
	if !hmac.Equal(computeMAC(secret, payload), wantMAC) {
		return false
	}

	var p sessionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	if p.SessionID == "" {
		return false
	}
	return i.now().UnixMilli() < p.ExpiresAt
}

func computeMAC(secret, payload []byte) []byte {
	m := hmac.New(sha256.New, secret)
	m.Write(payload)
	return m.Sum(nil)
}

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// LinkCodec produces single-purpose tokens embedded in emailed links
// (account verification, password reset). Tokens are namespaced so a
// verification token can never be replayed as a reset token, and carry
// their issue time so they go stale after maxAge.
type LinkCodec struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewLinkCodec derives a namespace-specific key from the shared secret.
// maxAge <= 0 falls back to one hour.
func NewLinkCodec(secret []byte, namespace string, maxAge time.Duration) *LinkCodec {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(namespace))
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LinkCodec{key: mac.Sum(nil), maxAge: maxAge, now: time.Now}
}

// Encode signs payload together with the current timestamp.
func (c *LinkCodec) Encode(payload string) string {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	body := encodeSegment([]byte(payload)) + "." + ts
	return body + "." + encodeSegment(c.sign(body))
}

// Decode verifies the signature and freshness of a token and returns the
// original payload. The boolean is false for any invalid, tampered or
// stale token.
func (c *LinkCodec) Decode(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}

	body := parts[0] + "." + parts[1]
	sig, err := decodeSegment(parts[2])
	if err != nil || !hmac.Equal(sig, c.sign(body)) {
		return "", false
	}

	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	age := c.now().Sub(time.Unix(issued, 0))
	if age < 0 || age > c.maxAge {
		return "", false
	}

	payload, err := decodeSegment(parts[0])
	if err != nil {
		return "", false
	}
	return string(payload), true
}

func (c *LinkCodec) sign(body string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

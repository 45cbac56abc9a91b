package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// SignatureVerifier checks webhook deliveries against the shared secret.
type SignatureVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewSignatureVerifier creates a verifier for the given shared secret. An
// empty secret is accepted here and reported by Verify.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{
		secret: strings.TrimSpace(secret),
		now:    time.Now,
	}
}

// WithTolerance rejects timestamped signatures more than d away from now in
// either direction. Zero disables the check.
func (v *SignatureVerifier) WithTolerance(d time.Duration) *SignatureVerifier {
	v.tolerance = d
	return v
}

// Verify reports whether header is a valid signature of rawBody.
//
// Two header formats are accepted: a bare hex HMAC-SHA256 of the body, and
// the Paddle Billing format "ts=<unix>;h1=<hex>" where the signed payload is
// "<ts>:<body>". A missing secret is a configuration fault and returns
// ErrMissingWebhookSecret instead of false.
func (v *SignatureVerifier) Verify(rawBody []byte, header string) (bool, error) {
	if v == nil || v.secret == "" {
		return false, ErrMissingWebhookSecret
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return false, nil
	}

	if !strings.Contains(header, "=") {
		return v.matches(rawBody, header), nil
	}

	ts, signatures := parsePaddleSignatureHeader(header)
	if ts == "" || len(signatures) == 0 {
		return false, nil
	}
	if v.tolerance > 0 {
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return false, nil
		}
		skew := v.now().Sub(time.Unix(unix, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > v.tolerance {
			return false, nil
		}
	}

	signed := make([]byte, 0, len(ts)+1+len(rawBody))
	signed = append(signed, ts...)
	signed = append(signed, ':')
	signed = append(signed, rawBody...)
	for _, sig := range signatures {
		if v.matches(signed, sig) {
			return true, nil
		}
	}
	return false, nil
}

// Sign returns the bare hex signature of payload. Used by tests and tooling
// to produce deliveries.
func (v *SignatureVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *SignatureVerifier) matches(payload []byte, hexSig string) bool {
	decoded, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(hexSig)))
	if err != nil || len(decoded) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

func parsePaddleSignatureHeader(header string) (string, []string) {
	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "h1":
			sigs = append(sigs, strings.TrimSpace(value))
		}
	}
	return ts, sigs
}

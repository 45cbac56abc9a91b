package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"
)

func hmacHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier_BareHex(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)
	v := NewSignatureVerifier("top-secret")

	ok, err := v.Verify(payload, hmacHex("top-secret", payload))
	if err != nil || !ok {
		t.Fatalf("expected valid signature, got ok=%v err=%v", ok, err)
	}

	ok, err = v.Verify(payload, "deadbeef")
	if err != nil || ok {
		t.Fatalf("expected invalid signature to fail, got ok=%v err=%v", ok, err)
	}

	ok, _ = v.Verify(payload, hmacHex("other-secret", payload))
	if ok {
		t.Fatalf("expected signature with wrong secret to fail")
	}

	ok, _ = v.Verify([]byte(`{"event_id":"evt_2"}`), hmacHex("top-secret", payload))
	if ok {
		t.Fatalf("expected signature over different body to fail")
	}
}

func TestSignatureVerifier_PaddleHeader(t *testing.T) {
	payload := []byte(`{"event_id":"evt_1"}`)
	ts := "1700000000"
	sig := hmacHex("top-secret", []byte(ts+":"+string(payload)))
	v := NewSignatureVerifier("top-secret")

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "valid", header: "ts=" + ts + ";h1=" + sig, want: true},
		{name: "valid with spaces", header: " ts=" + ts + "; h1=" + sig + " ", want: true},
		{name: "second h1 matches", header: "ts=" + ts + ";h1=00ff;h1=" + sig, want: true},
		{name: "wrong timestamp", header: "ts=1700000001;h1=" + sig, want: false},
		{name: "missing timestamp", header: "h1=" + sig, want: false},
		{name: "missing h1", header: "ts=" + ts, want: false},
		{name: "garbage", header: "ts=;h1=zz", want: false},
		{name: "empty", header: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(payload, tt.header)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Verify(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestSignatureVerifier_Tolerance(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Unix(1700000600, 0)
	v := NewSignatureVerifier("top-secret").WithTolerance(5 * time.Minute)
	v.now = func() time.Time { return now }

	fresh := strconv.FormatInt(now.Add(-time.Minute).Unix(), 10)
	stale := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
	skewed := strconv.FormatInt(now.Add(time.Minute).Unix(), 10)
	future := strconv.FormatInt(now.Add(24*time.Hour).Unix(), 10)

	ok, _ := v.Verify(payload, "ts="+fresh+";h1="+hmacHex("top-secret", []byte(fresh+":{}")))
	if !ok {
		t.Fatalf("expected fresh signature to validate")
	}
	ok, _ = v.Verify(payload, "ts="+stale+";h1="+hmacHex("top-secret", []byte(stale+":{}")))
	if ok {
		t.Fatalf("expected stale signature to be rejected")
	}
	ok, _ = v.Verify(payload, "ts="+skewed+";h1="+hmacHex("top-secret", []byte(skewed+":{}")))
	if !ok {
		t.Fatalf("expected small forward clock skew to validate")
	}
	ok, _ = v.Verify(payload, "ts="+future+";h1="+hmacHex("top-secret", []byte(future+":{}")))
	if ok {
		t.Fatalf("expected far future timestamp to be rejected")
	}
}

func TestSignatureVerifier_MissingSecret(t *testing.T) {
	v := NewSignatureVerifier("  ")
	ok, err := v.Verify([]byte(`{}`), "deadbeef")
	if ok {
		t.Fatalf("expected verification to fail without secret")
	}
	if !errors.Is(err, ErrMissingWebhookSecret) {
		t.Fatalf("expected ErrMissingWebhookSecret, got %v", err)
	}
}

func TestSignatureVerifier_Sign(t *testing.T) {
	payload := []byte(`{"a":1}`)
	v := NewSignatureVerifier("top-secret")
	ok, err := v.Verify(payload, v.Sign(payload))
	if err != nil || !ok {
		t.Fatalf("expected Sign output to verify, got ok=%v err=%v", ok, err)
	}
}

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	dErrors "admitto/pkg/domain-errors"
)

// Delivery header names. The identity provider signs every delivery with a
// versioned HMAC over "{id}.{timestamp}.{body}".
const (
	HeaderDeliveryID = "webhook-id"
	HeaderTimestamp  = "webhook-timestamp"
	HeaderSignature  = "webhook-signature"
)

// secretPrefix marks a base64-encoded signing secret as issued by the
// provider dashboard.
const secretPrefix = "whsec_"

// signatureVersion is the only HMAC scheme version this verifier accepts.
const signatureVersion = "v1"

// DefaultTolerance bounds how far a signed delivery timestamp may drift from
// the local clock before the delivery is treated as replayed or stale.
const DefaultTolerance = 5 * time.Minute

// Envelope is the verified, deserialized delivery: a type discriminator and
// the raw event payload, still unparsed so the normalizer owns its shape.
type Envelope struct {
	DeliveryID string
	Type       string
	Data       json.RawMessage
}

// Headers carries the three delivery headers the provider sends. Kept as a
// plain struct so verification stays independent of net/http.
type Headers struct {
	DeliveryID string
	Timestamp  string
	Signature  string
}

// Verifier validates that a delivery originated from the configured provider
// and was not tampered with or replayed outside the freshness window.
// Verification is pure: no side effects, explicit error results only.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithTolerance overrides the freshness window.
func WithTolerance(tolerance time.Duration) VerifierOption {
	return func(v *Verifier) {
		if tolerance > 0 {
			v.tolerance = tolerance
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier constructs a verifier from the shared signing secret. The
// secret may be raw bytes or the provider's "whsec_" base64 form. An empty
// secret yields a verifier that rejects everything; the misconfiguration
// surfaces as a client error so the provider does not retry into a black
// hole.
func NewVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
	if encoded, ok := strings.CutPrefix(secret, secretPrefix); ok {
		if key, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			v.key = key
		}
	} else if secret != "" {
		v.key = []byte(secret)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Verify checks the delivery headers and signature over the exact raw body
// bytes and returns the deserialized envelope. Every failure is a
// CodeBadRequest domain error: the provider must not retry these.
func (v *Verifier) Verify(headers Headers, body []byte) (Envelope, error) {
	if len(v.key) == 0 {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "webhook signing secret is not configured")
	}
	if headers.DeliveryID == "" || headers.Timestamp == "" || headers.Signature == "" {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "missing delivery headers")
	}

	timestamp, err := strconv.ParseInt(headers.Timestamp, 10, 64)
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "invalid delivery timestamp")
	}
	now := v.now()
	sent := time.Unix(timestamp, 0)
	if now.Sub(sent) > v.tolerance || sent.Sub(now) > v.tolerance {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "delivery timestamp outside tolerance")
	}

	expected := v.sign(headers.DeliveryID, headers.Timestamp, body)
	if !matchesAny(headers.Signature, expected) {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "signature mismatch")
	}

	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "malformed event payload")
	}
	if envelope.Type == "" {
		return Envelope{}, dErrors.New(dErrors.CodeBadRequest, "event payload missing type")
	}

	return Envelope{
		DeliveryID: headers.DeliveryID,
		Type:       envelope.Type,
		Data:       envelope.Data,
	}, nil
}

// sign computes the HMAC-SHA256 over "{id}.{timestamp}.{body}".
func (v *Verifier) sign(deliveryID, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(deliveryID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign produces the header value for a delivery. Used by tests and by
// provider simulators.
func (v *Verifier) Sign(deliveryID, timestamp string, body []byte) string {
	return signatureVersion + "," + base64.StdEncoding.EncodeToString(v.sign(deliveryID, timestamp, body))
}

// matchesAny compares the expected MAC against every versioned candidate in
// the signature header. The header may carry several space-separated
// signatures during secret rotation; any v1 match passes. Comparison is
// constant time.
func matchesAny(header string, expected []byte) bool {
	for _, candidate := range strings.Fields(header) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != signatureVersion {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}

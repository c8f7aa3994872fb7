package webhook

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	dErrors "admitto/pkg/domain-errors"
)

const testSecret = "test-signing-secret"

func signedHeaders(v *Verifier, deliveryID string, sent time.Time, body []byte) Headers {
	ts := strconv.FormatInt(sent.Unix(), 10)
	return Headers{
		DeliveryID: deliveryID,
		Timestamp:  ts,
		Signature:  v.Sign(deliveryID, ts, body),
	}
}

func TestVerifyAcceptsSignedDelivery(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testSecret, WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_1", now, body)

	envelope, err := v.Verify(headers, body)
	if err != nil {
		t.Fatalf("expected valid delivery to verify, got %v", err)
	}
	if envelope.Type != "user.created" {
		t.Fatalf("expected type user.created, got %q", envelope.Type)
	}
	if envelope.DeliveryID != "msg_1" {
		t.Fatalf("expected delivery id msg_1, got %q", envelope.DeliveryID)
	}
}

func TestVerifyAcceptsWhsecEncodedSecret(t *testing.T) {
	now := time.Now()
	encoded := "whsec_" + base64.StdEncoding.EncodeToString([]byte(testSecret))
	signer := NewVerifier(testSecret, WithClock(func() time.Time { return now }))
	v := NewVerifier(encoded, WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{}}`)
	headers := signedHeaders(signer, "msg_1", now, body)

	if _, err := v.Verify(headers, body); err != nil {
		t.Fatalf("expected whsec_ secret to verify raw-signed delivery, got %v", err)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testSecret, WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_1", now, body)

	tampered := []byte(`{"type":"user.created","data":{"id":"user_2"}}`)
	_, err := v.Verify(headers, tampered)
	if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad request for tampered body, got %v", err)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v := NewVerifier(testSecret)
	body := []byte(`{"type":"user.created","data":{}}`)

	cases := []Headers{
		{},
		{DeliveryID: "msg_1"},
		{DeliveryID: "msg_1", Timestamp: "123"},
		{Timestamp: "123", Signature: "v1,abc"},
	}
	for _, headers := range cases {
		if _, err := v.Verify(headers, body); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad request for headers %+v, got %v", headers, err)
		}
	}
}

func TestVerifyRejectsEmptySecret(t *testing.T) {
	v := NewVerifier("")
	now := time.Now()
	signer := NewVerifier(testSecret, WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{}}`)
	headers := signedHeaders(signer, "msg_1", now, body)

	_, err := v.Verify(headers, body)
	if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad request when secret unconfigured, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testSecret, WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{}}`)

	// Correctly signed, but sent beyond the freshness window in each direction.
	for _, sent := range []time.Time{now.Add(-6 * time.Minute), now.Add(6 * time.Minute)} {
		headers := signedHeaders(v, "msg_1", sent, body)
		if _, err := v.Verify(headers, body); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad request for timestamp %v, got %v", sent, err)
		}
	}
}

func TestVerifyRejectsNonNumericTimestamp(t *testing.T) {
	v := NewVerifier(testSecret)
	headers := Headers{DeliveryID: "msg_1", Timestamp: "not-a-number", Signature: "v1,abc"}

	_, err := v.Verify(headers, []byte(`{}`))
	if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad request for non-numeric timestamp, got %v", err)
	}
}

func TestVerifyAcceptsRotatedSignatureList(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testSecret, WithClock(func() time.Time { return now }))
	stale := NewVerifier("previous-secret", WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{}}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	// Rotation window: the header carries signatures from both secrets.
	combined := strings.Join([]string{
		stale.Sign("msg_1", ts, body),
		v.Sign("msg_1", ts, body),
	}, " ")
	headers := Headers{DeliveryID: "msg_1", Timestamp: ts, Signature: combined}

	if _, err := v.Verify(headers, body); err != nil {
		t.Fatalf("expected any matching candidate to verify, got %v", err)
	}
}

func TestVerifyRejectsUnknownVersionOnly(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testSecret, WithClock(func() time.Time { return now }))

	body := []byte(`{"type":"user.created","data":{}}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := v.Sign("msg_1", ts, body)

	// Same MAC, wrong version tag: must not match.
	headers := Headers{DeliveryID: "msg_1", Timestamp: ts, Signature: "v2" + strings.TrimPrefix(sig, "v1")}

	if _, err := v.Verify(headers, body); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad request for unknown signature version, got %v", err)
	}
}

func TestVerifyRejectsMalformedEnvelope(t *testing.T) {
	now := time.Now()
	v := NewVerifier(testSecret, WithClock(func() time.Time { return now }))

	for _, body := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"data":{}}`),
	} {
		headers := signedHeaders(v, "msg_1", now, body)
		if _, err := v.Verify(headers, body); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("expected bad request for body %s, got %v", body, err)
		}
	}
}

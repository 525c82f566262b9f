package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"
)

// PaddleSignatureHeader is the header carrying the webhook signature.
const PaddleSignatureHeader = "Paddle-Signature"

var (
	ErrSignatureMissing   = errors.New("signature header missing")
	ErrSignatureMalformed = errors.New("signature header malformed")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrSignatureExpired   = errors.New("signature timestamp outside tolerance")
)

// PaddleSignature is a parsed Paddle-Signature header. Several h1 digests
// may be present while a secret is being rotated.
type PaddleSignature struct {
	Timestamp string
	Digests   [][]byte
}

// ParsePaddleSignatureHeader accepts "ts=..;h1=.." as documented by Paddle
// and the comma separated form.
func ParsePaddleSignatureHeader(header string) (*PaddleSignature, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return nil, ErrSignatureMissing
	}

	sig := &PaddleSignature{}
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' }) {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, ErrSignatureMalformed
		}
		switch strings.TrimSpace(key) {
		case "ts":
			value = strings.TrimSpace(value)
			if _, err := strconv.ParseInt(value, 10, 64); err != nil || sig.Timestamp != "" {
				return nil, ErrSignatureMalformed
			}
			sig.Timestamp = value
		case "h1":
			digest, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(value)))
			if err != nil || len(digest) != sha256.Size {
				return nil, ErrSignatureMalformed
			}
			sig.Digests = append(sig.Digests, digest)
		}
	}

	if sig.Timestamp == "" || len(sig.Digests) == 0 {
		return nil, ErrSignatureMalformed
	}
	return sig, nil
}

// VerifyPaddleWebhookSignature checks HMAC-SHA256(secret, "{ts}:{payload}")
// against every h1 digest in the header. A zero tolerance disables the
// timestamp check.
func VerifyPaddleWebhookSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) error {
	sig, err := ParsePaddleSignatureHeader(signatureHeader)
	if err != nil {
		return err
	}
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return ErrSignatureMismatch
	}

	if tolerance > 0 {
		ts, _ := strconv.ParseInt(sig.Timestamp, 10, 64)
		age := now.Sub(time.Unix(ts, 0))
		if age < 0 {
			age = -age
		}
		if age > tolerance {
			return ErrSignatureExpired
		}
	}

	signed := signedPayload(sig.Timestamp, payload)
	for _, digest := range sig.Digests {
		if verifyHMAC(signed, digest, []byte(secret), sha256.New) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// SignPaddleWebhook builds a Paddle-Signature header value for payload.
func SignPaddleWebhook(payload []byte, webhookSecret string, ts int64) string {
	timestamp := strconv.FormatInt(ts, 10)
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(webhookSecret)))
	mac.Write(signedPayload(timestamp, payload))
	return fmt.Sprintf("ts=%s;h1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func signedPayload(ts string, payload []byte) []byte {
	out := make([]byte, 0, len(ts)+1+len(payload))
	out = append(out, ts...)
	out = append(out, ':')
	return append(out, payload...)
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader carries the HMAC-SHA256 of the notification body keyed with the app secret.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

var (
	errMissingSignature = errors.New("missing " + SignatureHeader + " header")
	errInvalidSignature = errors.New("invalid " + SignatureHeader + " signature")
)

// verifySignature checks header, formatted as "sha256=<hex>", against body.
func verifySignature(body []byte, header, secret string) error {
	if header == "" {
		return errMissingSignature
	}
	encoded, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return fmt.Errorf("%w: expected %q prefix", errInvalidSignature, signaturePrefix)
	}
	signature, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidSignature, err)
	}
	if !hmac.Equal(signature, Sign(body, secret)) {
		return errInvalidSignature
	}
	return nil
}

// Sign returns the HMAC-SHA256 of body keyed with secret.
func Sign(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeaderValue formats the X-Hub-Signature-256 value for body.
func SignatureHeaderValue(body []byte, secret string) string {
	return signaturePrefix + hex.EncodeToString(Sign(body, secret))
}

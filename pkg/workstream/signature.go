package workstream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// signaturePrefix is the optional algorithm prefix on inbound signatures.
const signaturePrefix = "sha256="

// SignatureValidator authenticates raw webhook bodies against a shared
// secret using HMAC-SHA256.
type SignatureValidator struct {
	secret   []byte
	enabled  bool
	logger   Logger
	warnOnce sync.Once
}

// NewSignatureValidator creates a validator. When enabled is false every
// payload is accepted. When enabled but secret is empty, payloads are
// accepted with a warning, since validation is effectively disabled.
func NewSignatureValidator(secret string, enabled bool, logger Logger) *SignatureValidator {
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &SignatureValidator{
		secret:  []byte(secret),
		enabled: enabled,
		logger:  logger,
	}
}

// Validate checks the signature header against the raw body. It returns nil
// on acceptance and a *SignatureError on rejection.
func (v *SignatureValidator) Validate(body []byte, signature string) error {
	if !v.enabled {
		return nil
	}
	if len(v.secret) == 0 {
		v.warnOnce.Do(func() {
			v.logger.Warn("signature validation enabled but no secret configured, accepting all payloads")
		})
		return nil
	}
	if signature == "" {
		return &SignatureError{Reason: "missing signature header"}
	}

	signature = strings.TrimPrefix(signature, signaturePrefix)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal keeps the comparison constant-time.
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return &SignatureError{Reason: "signature mismatch"}
	}
	return nil
}

// Sign computes the signature value for a body, including the algorithm
// prefix. Intended for tests and local tooling.
func (v *SignatureValidator) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

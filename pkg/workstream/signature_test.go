package workstream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureValidator_Disabled(t *testing.T) {
	v := NewSignatureValidator("secret", false, nil)
	assert.NoError(t, v.Validate([]byte("anything"), ""))
	assert.NoError(t, v.Validate([]byte("anything"), "garbage"))
}

func TestSignatureValidator_NoSecret(t *testing.T) {
	v := NewSignatureValidator("", true, nil)
	// Accepts everything: validation is effectively disabled.
	assert.NoError(t, v.Validate([]byte("anything"), ""))
}

func TestSignatureValidator_MissingHeader(t *testing.T) {
	v := NewSignatureValidator("secret", true, nil)
	err := v.Validate([]byte("body"), "")

	var sigErr *SignatureError
	assert.ErrorAs(t, err, &sigErr)
}

func TestSignatureValidator_Valid(t *testing.T) {
	body := []byte(`{"eventType":"workitem.updated"}`)
	v := NewSignatureValidator("secret", true, nil)

	t.Run("bare hex", func(t *testing.T) {
		assert.NoError(t, v.Validate(body, signBody("secret", body)))
	})

	t.Run("with algorithm prefix", func(t *testing.T) {
		assert.NoError(t, v.Validate(body, "sha256="+signBody("secret", body)))
	})

	t.Run("via Sign helper", func(t *testing.T) {
		assert.NoError(t, v.Validate(body, v.Sign(body)))
	})
}

func TestSignatureValidator_Mismatch(t *testing.T) {
	body := []byte(`{"eventType":"workitem.updated"}`)
	v := NewSignatureValidator("secret", true, nil)

	tests := []struct {
		name      string
		signature string
	}{
		{"wrong secret", signBody("other", body)},
		{"tampered body", signBody("secret", []byte("tampered"))},
		{"not hex", "sha256=zzzz"},
		{"truncated", signBody("secret", body)[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sigErr *SignatureError
			assert.ErrorAs(t, v.Validate(body, tt.signature), &sigErr)
		})
	}
}

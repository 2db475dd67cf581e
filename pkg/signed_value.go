package pkg

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignValue returns "value.signature", where the signature is an HMAC-SHA256
// of the value keyed with the given secret. Used for session cookie values,
// so a client cannot fabricate or tamper with the stored token.
func SignValue(secret, value string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(value))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return value + "." + sig
}

// VerifySignedValue checks the signature of a value produced by SignValue and
// returns the original value. The signature comparison is constant-time.
func VerifySignedValue(secret, signed string) (string, bool) {
	dotAt := strings.LastIndex(signed, ".")
	if dotAt <= 0 {
		return "", false
	}
	value := signed[:dotAt]
	if !hmac.Equal([]byte(SignValue(secret, value)), []byte(signed)) {
		return "", false
	}
	return value, true
}

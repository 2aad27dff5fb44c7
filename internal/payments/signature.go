// Package payments verifies incoming payment notifications and converts
// purchase amounts into credit grants.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// VerifyHMACSHA256 checks that signature matches the HMAC-SHA256 of body under
// secret. Providers send either hex or base64 digests, some with a "sha256="
// prefix; all variants are accepted and compared in constant time.
func VerifyHMACSHA256(body []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if decoded, err := hex.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil {
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}

// VerifyPaddleSignature checks a Paddle-style signature header of the form
// "ts=<unix>;h1=<hex>", where the digest covers "<ts>:<body>".
func VerifyPaddleSignature(body []byte, secret, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	var ts, h1 string
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "h1":
			h1 = v
		}
	}
	if ts == "" || h1 == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte(":"))
	mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(h1)
	if err != nil {
		return false
	}
	return hmac.Equal(decoded, expected)
}

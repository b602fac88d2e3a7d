package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifyMercadoPagoSignature checks the x-signature header against the
// manifest "id:<data.id>;request-id:<x-request-id>;ts:<ts>;". Parts of the
// manifest are omitted when their value is absent.
func VerifyMercadoPagoSignature(signatureHeader, requestID, dataID, webhookSecret string) bool {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return false
	}

	ts, v1 := parseSignatureHeader(signatureHeader)
	if ts == "" || v1 == "" {
		return false
	}
	decodedSig, err := hex.DecodeString(strings.ToLower(v1))
	if err != nil {
		return false
	}

	var manifest strings.Builder
	if id := strings.TrimSpace(dataID); id != "" {
		manifest.WriteString("id:" + strings.ToLower(id) + ";")
	}
	if rid := strings.TrimSpace(requestID); rid != "" {
		manifest.WriteString("request-id:" + rid + ";")
	}
	manifest.WriteString("ts:" + ts + ";")

	return verifyHMAC([]byte(manifest.String()), decodedSig, []byte(secret), sha256.New)
}

// parseSignatureHeader splits "ts=...,v1=..." in any order.
func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}

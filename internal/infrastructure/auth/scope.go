package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Scope names the session a token belongs to, so one caller never sees
// another caller's data. The scope is a digest of the whole token: claims
// are never verified locally, so two tokens share a scope only when they
// are the same token.
func Scope(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "tok:" + hex.EncodeToString(sum[:12])
}

// ClaimedCompany returns the company a token names, or "" for opaque and
// expired tokens. The claim is unverified: use it to narrow requests or to
// invalidate cached reads, never to grant access.
func ClaimedCompany(token string, now time.Time) string {
	claims, err := Inspect(token, now)
	if err != nil {
		return ""
	}
	return claims.CompanyID
}

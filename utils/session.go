package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// GuestSessionHeader carries the session issued on granted access.
const GuestSessionHeader = "X-Guest-Session"

var (
	ErrSessionFormat    = errors.New("invalid session format")
	ErrSessionSignature = errors.New("invalid session signature")
	ErrSessionExpired   = errors.New("session expired")
)

// GuestSessionClaims identify the guest an invitation was opened for.
type GuestSessionClaims struct {
	GuestID   string `json:"gid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// CreateGuestSession signs a session for guestID valid for ttl.
func CreateGuestSession(guestID string, ttl time.Duration, now time.Time) (string, error) {
	if guestID == "" {
		return "", errors.New("guest id required")
	}
	claims := GuestSessionClaims{
		GuestID:   guestID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signSession(encoded), nil
}

// ValidateGuestSession checks the signature and expiry of a session token.
func ValidateGuestSession(token string, now time.Time) (*GuestSessionClaims, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sig == "" {
		return nil, ErrSessionFormat
	}
	if !hmac.Equal([]byte(sig), []byte(signSession(encoded))) {
		return nil, ErrSessionSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrSessionFormat
	}
	var claims GuestSessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrSessionFormat
	}
	if now.Unix() > claims.ExpiresAt {
		return nil, ErrSessionExpired
	}
	return &claims, nil
}

// signSession keys the HMAC with ENCRYPTION_KEY under its own domain prefix.
func signSession(payload string) string {
	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		key = "dev-session-key"
	}
	mac := hmac.New(sha256.New, []byte("guest-session:"+key))
	mac.Write([]byte(payload))
	return fmt.Sprintf("%x", mac.Sum(nil))
}

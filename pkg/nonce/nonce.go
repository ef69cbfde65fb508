// Package nonce issues short-lived request tokens bound to a user and a panel action.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("malformed nonce")
	ErrMismatch  = errors.New("nonce does not match user or action")
	ErrExpired   = errors.New("nonce expired")
)

// Manager signs and verifies nonces.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a Manager; ttl defaults to twelve hours.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long issued nonces stay valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a nonce for userID performing action.
func (m *Manager) Issue(userID, action string) (string, time.Time) {
	expiresAt := m.now().Add(m.ttl).UTC().Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 36)
	return exp + "." + m.sign(userID, action, exp), expiresAt
}

// Verify checks that token was issued for userID and action and has not expired.
func (m *Manager) Verify(token, userID, action string) error {
	exp, signature, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || exp == "" || signature == "" {
		return ErrMalformed
	}
	unix, err := strconv.ParseInt(exp, 36, 64)
	if err != nil {
		return ErrMalformed
	}
	if !hmac.Equal([]byte(m.sign(userID, action, exp)), []byte(signature)) {
		return ErrMismatch
	}
	if m.now().After(time.Unix(unix, 0)) {
		return ErrExpired
	}
	return nil
}

func (m *Manager) sign(userID, action, exp string) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write([]byte(userID + "|" + action + "|" + exp))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

package nonce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, expiresAt := m.Issue("user-1", "approve_enrollment")

	assert.NoError(t, m.Verify(token, "user-1", "approve_enrollment"))
	assert.True(t, expiresAt.After(time.Now()))
}

func TestVerifyRejectsOtherUserOrAction(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, _ := m.Issue("user-1", "approve_enrollment")

	assert.ErrorIs(t, m.Verify(token, "user-2", "approve_enrollment"), ErrMismatch)
	assert.ErrorIs(t, m.Verify(token, "user-1", "send_bulk_email"), ErrMismatch)
	assert.ErrorIs(t, m.Verify("garbage", "user-1", "approve_enrollment"), ErrMalformed)
	assert.ErrorIs(t, m.Verify("", "user-1", "approve_enrollment"), ErrMalformed)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	token, _ := m.Issue("user-1", "export_reports")

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, m.Verify(token, "user-1", "export_reports"), ErrExpired)
}

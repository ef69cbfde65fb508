package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("invoice", "pay-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ref, parsedExpiry, err := signer.Parse(token, "invoice")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", ref)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerRejectsOtherKind(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("invoice", "pay-1")
	require.NoError(t, err)

	_, _, err = signer.Parse(token, "export")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("invoice", "pay-1")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, err = other.Parse(token, "invoice")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = signer.Parse("bm9wZQ.deadbeef", "invoice")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("invoice", "pay-1")
	require.NoError(t, err)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = signer.Parse(token, "invoice")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	err := m.SendVerificationEmail(context.Background(), "ada@example.com", "ada", "http://localhost/verify-email?token=abc")

	require.NoError(t, err)
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "http://localhost/verify-email?token=abc", entries[0].ContextMap()["link"])
}

package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed(redact bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return FromZap(zap.New(core), redact), logs
}

func TestRedactsSecretKeys(t *testing.T) {
	log, logs := observed(true)

	log.Info("calling provider", "api_key", "sk-123", "cron_secret", "abc", "model", "deepseek-chat")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["cron_secret"])
	assert.Equal(t, "deepseek-chat", fields["model"])
}

func TestHashesEmails(t *testing.T) {
	log, logs := observed(true)

	log.With("email", "ana@example.com").Warn("duplicate worksheet")

	fields := logs.All()[0].ContextMap()
	got, ok := fields["email"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "hash:"), "got %q", got)
	assert.NotContains(t, got, "ana@example.com")
}

func TestRedactionDisabled(t *testing.T) {
	log, logs := observed(false)

	log.Debug("token issued", "token", "eyJ.abc.def")

	assert.Equal(t, "eyJ.abc.def", logs.All()[0].ContextMap()["token"])
}

func TestOddKeyValues(t *testing.T) {
	log, logs := observed(true)

	log.Error("dangling", "user_id", 4, "orphan")

	assert.Equal(t, 1, logs.FilterMessage("dangling").Len())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Mode: "production", Level: "loud"})
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, LockLocal, cfg.LockBackend)
	assert.Equal(t, PropagationInline, cfg.PropagationMode)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("PROPAGATION_MODE", "outbox")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("DB_MAX_CONNS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, LockRedis, cfg.LockBackend)
	assert.Equal(t, PropagationOutbox, cfg.PropagationMode)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, int32(8), cfg.DBMaxConns)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage", map[string]string{"STORAGE": "sqlite"}},
		{"unknown lock backend", map[string]string{"LOCK_BACKEND": "etcd"}},
		{"unknown propagation", map[string]string{"PROPAGATION_MODE": "kafka"}},
		{"outbox without postgres", map[string]string{"STORAGE": "memory", "PROPAGATION_MODE": "outbox"}},
		{"idempotency without postgres", map[string]string{"STORAGE": "memory", "IDEMPOTENCY_ENABLED": "true"}},
		{"min over max", map[string]string{"DB_MIN_CONNS": "10", "DB_MAX_CONNS": "4"}},
		{"bad duration", map[string]string{"LOCK_TTL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

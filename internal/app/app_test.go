package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/menubot-backend/internal/config"
	"github.com/Ananth-NQI/menubot-backend/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{UseMemoryStore: true},
		Redis:    config.RedisConfig{LockTTL: time.Second},
		Dialog:   config.DialogConfig{SessionTTL: time.Minute, SweepInterval: time.Minute, SearchLimit: 3},
	}
}

func TestBuild_Memory(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := Build(context.Background(), testConfig(), log)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "memory", c.StorageKind)
	assert.Equal(t, "memory", c.LockerKind)
	assert.Nil(t, c.Ping)

	reply, err := c.Processor.Process(context.Background(), services.InboundMessage{
		TenantID: "t1", Sender: "+1", Text: "add item",
	})
	require.NoError(t, err)
	assert.Equal(t, services.ReplyAskName, reply)
}

func TestBuild_RedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := Build(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.Equal(t, "redis", c.LockerKind)

	reply, err := c.Processor.Process(context.Background(), services.InboundMessage{
		TenantID: "t1", Sender: "+1", Text: "hello", MessageID: "SM1",
	})
	require.NoError(t, err)
	assert.Equal(t, services.ReplyHelp, reply)
	assert.Empty(t, mr.Keys())

	assert.NoError(t, c.Close())
}

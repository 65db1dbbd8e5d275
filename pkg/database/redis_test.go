package database

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func miniConfig(t *testing.T, mr *miniredis.Miniredis) RedisConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := DefaultRedisConfig()
	cfg.Host, cfg.Port = host, p
	return cfg
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", DefaultRedisConfig().Addr())
	assert.Equal(t, "[::1]:6380", RedisConfig{Host: "::1", Port: 6380}.Addr())
}

func TestNewRedisClient_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), miniConfig(t, mr))
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, RedisChecker(client)(context.Background()))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := miniConfig(t, mr)
	mr.Close()

	_, err := NewRedisClient(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestRedisChecker_ReportsOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), miniConfig(t, mr))
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	assert.Error(t, RedisChecker(client)(context.Background()))
}

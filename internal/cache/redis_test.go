package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"coffeecoin/pkg/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient 内存中的Redis替身
type fakeClient struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRedis_RoundTrip(t *testing.T) {
	cli := newFakeClient()
	cache := NewRedisWithClient(cli, 2*time.Minute, testLogger())
	ctx := context.Background()

	const contract = "0x00000000000000000000000000000000000000CC"
	got, err := cache.GetOverview(ctx, contract)
	require.NoError(t, err)
	assert.Nil(t, got)

	overview := &models.ContractOverview{
		ContractAddress: contract,
		TotalSupply:     "1000",
		TokenName:       "CoffeeCoin",
		TokenSymbol:     "CFC",
		TotalMinted:     models.Known("1000", false),
		NumberOfHolders: models.Known(0, true),
		GeneratedAt:     1700000000,
	}
	require.NoError(t, cache.SetOverview(ctx, overview))

	key := "coffeecoin:overview:0x00000000000000000000000000000000000000cc"
	assert.Equal(t, 2*time.Minute, cli.ttls[key])

	got, err = cache.GetOverview(ctx, contract)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CoffeeCoin", got.TokenName)
	assert.Equal(t, models.Available, got.TotalMinted.State)
	assert.Equal(t, "1000", got.TotalMinted.Value)
	assert.Equal(t, models.Empty, got.NumberOfHolders.State)
	assert.Equal(t, models.Unknown, got.TotalRedeemedToZeroAddress.State)
}

func TestRedis_Errors(t *testing.T) {
	cli := newFakeClient()
	cache := NewRedisWithClient(cli, 0, testLogger())
	assert.Equal(t, time.Minute, cache.ttl)
	ctx := context.Background()

	cli.getErr = errors.New("connection refused")
	_, err := cache.GetOverview(ctx, "0xabc")
	assert.ErrorContains(t, err, "connection refused")

	cli.setErr = errors.New("READONLY")
	err = cache.SetOverview(ctx, &models.ContractOverview{ContractAddress: "0xabc"})
	assert.ErrorContains(t, err, "READONLY")

	// 损坏的缓存内容视为未命中
	cli.getErr = nil
	cli.data[overviewKey("0xabc")] = "{not json"
	got, err := cache.GetOverview(ctx, "0xabc")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Ping(ctx))
	require.NoError(t, cache.Close())
	assert.True(t, cli.closed)
}

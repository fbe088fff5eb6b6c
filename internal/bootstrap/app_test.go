package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"coffeecoin/internal/config"
	"coffeecoin/internal/faucet"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChainServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0xaa36a7"}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testConfig(rpcURL string) *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Blockchain.RPCURL = rpcURL
	cfg.Blockchain.ContractAddress = "0x00000000000000000000000000000000000000cc"
	return cfg
}

func TestBuild_DegradesWithoutKeys(t *testing.T) {
	t.Setenv("COFFEECOIN_DB_DSN", "")
	srv := newChainServer(t)
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := Build(context.Background(), testConfig(srv.URL), logger)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "11155111", app.Node.ChainID().String())
	assert.False(t, app.Explorer.Configured())
	assert.Nil(t, app.Transactor)
	assert.False(t, app.Token.CanMint())
	assert.Nil(t, app.Cache)

	result := app.Faucet.Drip(context.Background(), "0x00000000000000000000000000000000000000aa")
	assert.Equal(t, models.DripFailed, result.Outcome)
	assert.Equal(t, faucet.MsgNotConfigured, result.Message)

	deps := app.APIDeps()
	assert.Nil(t, deps.ConfigStore)
	assert.NotNil(t, deps.Activity)
	assert.NotEmpty(t, app.Selectors.Entries())
}

func TestBuild_WithSigner(t *testing.T) {
	t.Setenv("COFFEECOIN_DB_DSN", "")
	srv := newChainServer(t)
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := testConfig(srv.URL)
	cfg.Blockchain.ServerPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	app, err := Build(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Transactor)
	assert.True(t, app.Token.CanMint())
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", app.Transactor.From().Hex())

	cfg.Blockchain.ServerPrivateKey = "not-a-key"
	_, err = Build(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestBuild_Unreachable(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Build(context.Background(), testConfig(srv.URL), logger)
	assert.Error(t, err)
}

package explorer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coffeecoin/internal/config"
	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/retry"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.GetDefaultConfig().Explorer
	cfg.APIURL = server.URL
	cfg.APIKey = "test-key"
	cfg.ChainID = "11155111"

	retrier := retry.NewRetrier(&retry.RetryConfig{
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		BackoffFactor:   1,
	}, testLogger())
	return NewClient(cfg, retrier, testLogger())
}

func TestFetchPage_Params(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{}
		for k := range q {
			got[k] = q.Get(k)
		}
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":[
			{"hash":"0xa","from":"0x1","to":"0x2","value":"5","logIndex":"0"},
			{"hash":"0xb","from":"0x2","to":"0x1","value":"7","logIndex":"1"}]}`)
	})

	page, err := client.FetchPage(context.Background(), ListQuery{
		Action:          ActionTokenTx,
		Address:         "0xuser",
		ContractAddress: "0xcontract",
		Page:            2,
		Offset:          100,
		Sort:            SortDesc,
	})
	require.NoError(t, err)
	assert.False(t, page.NoRecords)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "0xa", page.Items[0].Hash)
	assert.Equal(t, "7", page.Items[1].Value)

	assert.Equal(t, "account", got["module"])
	assert.Equal(t, "tokentx", got["action"])
	assert.Equal(t, "0xuser", got["address"])
	assert.Equal(t, "0xcontract", got["contractaddress"])
	assert.Equal(t, "2", got["page"])
	assert.Equal(t, "100", got["offset"])
	assert.Equal(t, "0", got["startblock"])
	assert.Equal(t, "99999999", got["endblock"])
	assert.Equal(t, "desc", got["sort"])
	assert.Equal(t, "test-key", got["apikey"])
	assert.Equal(t, "11155111", got["chainid"])
}

func TestFetchPage_NoRecords(t *testing.T) {
	messages := []string{
		"No transactions found",
		"No records found",
		"Result window is too large, PageNo x Offset size must be less than or equal to 10000",
	}
	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"0","message":"`+msg+`","result":[]}`)
			})
			page, err := client.FetchPage(context.Background(), ListQuery{Action: ActionTxList, Address: "0x1", Page: 1, Offset: 10})
			require.NoError(t, err)
			assert.True(t, page.NoRecords)
			assert.Empty(t, page.Items)
		})
	}
}

func TestFetchPage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusOK, `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`, "NOTOK"},
		{"http error", http.StatusBadRequest, `bad`, "Explorer request failed"},
		{"malformed json", http.StatusOK, `not json`, "malformed JSON"},
		{"result not array", http.StatusOK, `{"status":"1","message":"OK","result":"oops"}`, "Unexpected explorer result"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.FetchPage(context.Background(), ListQuery{Action: ActionTxList, Address: "0x1", Page: 1, Offset: 10})
			require.Error(t, err)
			assert.True(t, coinerrors.IsKind(err, coinerrors.KindUpstream))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_NotConfigured(t *testing.T) {
	cfg := config.GetDefaultConfig().Explorer
	client := NewClient(cfg, nil, testLogger())
	assert.False(t, client.Configured())

	_, err := client.FetchPage(context.Background(), ListQuery{Action: ActionTxList, Page: 1, Offset: 1})
	require.Error(t, err)
	assert.True(t, coinerrors.IsKind(err, coinerrors.KindConfig))
}

func TestBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "balance", r.URL.Query().Get("action"))
		assert.Equal(t, "latest", r.URL.Query().Get("tag"))
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":"4000000000000000"}`)
	})

	balance, err := client.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "4000000000000000", balance.String())
}

func TestBalance_RetriesRateLimit(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = io.WriteString(w, `{"status":"0","message":"NOTOK","result":"Max calls per sec rate limit reached (5/sec)"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":"1"}`)
	})

	balance, err := client.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "1", balance.String())
	assert.Equal(t, 2, calls)
}

func TestContractCreation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "contract", r.URL.Query().Get("module"))
		assert.Equal(t, "0xc0ffee", r.URL.Query().Get("contractaddresses"))
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":[{"contractAddress":"0xc0ffee","contractCreator":"0xcreator","txHash":"0xdeploy"}]}`)
	})

	creation, err := client.ContractCreation(context.Background(), "0xc0ffee")
	require.NoError(t, err)
	assert.Equal(t, "0xcreator", creation.ContractCreator)
	assert.Equal(t, "0xdeploy", creation.TxHash)
}

func TestContractCreation_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":[]}`)
	})

	_, err := client.ContractCreation(context.Background(), "0xc0ffee")
	assert.Error(t, err)
}

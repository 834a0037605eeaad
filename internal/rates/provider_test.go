package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/model"
)

func testConfig(url string) config.RatesConfig {
	cfg := config.Default().Rates
	cfg.URL = url
	return cfg
}

func serveFile(t *testing.T, path string) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_LiveValues(t *testing.T) {
	srv := serveFile(t, "testdata/dolares.json")
	p := NewProvider(testConfig(srv.URL), nil, zap.NewNop())

	table, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 4, "unknown houses are ignored")

	assert.Equal(t, "1455", table[model.KindOficial].Sell.String())
	assert.Equal(t, "1460", table[model.KindBlue].Buy.String())
	assert.Equal(t, "1548.5", table[model.KindCripto].Sell.String())
	// "bolsa" is the source's name for MEP.
	assert.Equal(t, "1520.5", table[model.KindMEP].Buy.String())
	assert.Equal(t, "1530.25", table[model.KindMEP].Sell.String())
}

func TestFetch_PartialResponseKeepsDefaults(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `[{"casa":"blue","compra":1500,"venta":"1520.5"}]`)
	p := NewProvider(testConfig(srv.URL), nil, zap.NewNop())

	table, err := p.Fetch(context.Background())
	require.NoError(t, err)

	defaults := model.DefaultRates()
	assert.Equal(t, "1520.5", table[model.KindBlue].Sell.String())
	assert.True(t, defaults[model.KindMEP].Sell.Equal(table[model.KindMEP].Sell))
	assert.True(t, defaults[model.KindOficial].Buy.Equal(table[model.KindOficial].Buy))
}

func TestFetch_InvalidEntryReplacesNothing(t *testing.T) {
	// A known house with a bad sell value must not half-update its pair.
	srv := serveBody(t, http.StatusOK, `[{"casa":"blue","compra":1500,"venta":null},{"casa":"cripto"}]`)
	p := NewProvider(testConfig(srv.URL), nil, zap.NewNop())

	table, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRates(), table)
}

func TestFetch_CaseInsensitiveNames(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `[{"casa":"OFICIAL","compra":1,"venta":2}]`)
	p := NewProvider(testConfig(srv.URL), nil, zap.NewNop())

	table, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", table[model.KindOficial].Sell.String())
}

func TestFetch_CustomPaths(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `[{"house":{"id":"blue"},"quote":{"bid":10,"ask":11}}]`)
	cfg := testConfig(srv.URL)
	cfg.NamePath = "$.house.id"
	cfg.BuyPath = "$.quote.bid"
	cfg.SellPath = "$.quote.ask"
	p := NewProvider(cfg, nil, zap.NewNop())

	table, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10", table[model.KindBlue].Buy.String())
	assert.Equal(t, "11", table[model.KindBlue].Sell.String())
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `[]`},
		{"not found", http.StatusNotFound, `not here`},
		{"malformed body", http.StatusOK, `{"casa":`},
		{"object instead of array", http.StatusOK, `{"casa":"blue"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveBody(t, tt.status, tt.body)
			p := NewProvider(testConfig(srv.URL), nil, zap.NewNop())

			_, err := p.Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFetch)

			assert.Equal(t, model.DefaultRates(), p.Rates(context.Background()))
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	p := NewProvider(cfg, nil, zap.NewNop())

	start := time.Now()
	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRates_UnreachableReturnsDefaults(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `[]`)
	url := srv.URL
	srv.Close()

	p := NewProvider(testConfig(url), nil, zap.NewNop())
	got := p.Rates(context.Background())
	assert.Equal(t, model.DefaultRates(), got)
}

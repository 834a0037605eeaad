// Package rates fetches dollar quotes and keeps them for a fixed window.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/model"
)

// ErrFetch wraps every failure to obtain or decode the quote source.
var ErrFetch = errors.New("fetching rates")

const maxBody = 1 << 20

// Provider reads quotes from an HTTP source returning a JSON array of
// objects. The house name and the buy/sell values of each object are located
// with JSON paths from the configuration.
type Provider struct {
	client *http.Client
	cfg    config.RatesConfig
	logger *zap.Logger
}

// NewProvider creates a Provider. A nil client gets one bounded by cfg.Timeout.
func NewProvider(cfg config.RatesConfig, client *http.Client, logger *zap.Logger) *Provider {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{client: client, cfg: cfg, logger: logger}
}

// Rates returns the live table, or the defaults when the source cannot be
// used. It never fails.
func (p *Provider) Rates(ctx context.Context) model.RateTable {
	table, err := p.Fetch(ctx)
	if err != nil {
		p.logger.Warn("using default rates", zap.String("url", p.cfg.URL), zap.Error(err))
		return model.DefaultRates()
	}
	return table
}

// Fetch queries the source. Entries naming a known kind replace that kind's
// whole quote; other entries are ignored.
func (p *Provider) Fetch(ctx context.Context) (model.RateTable, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetch, err)
	}

	var entries []any
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %w", ErrFetch, err)
	}

	table := model.DefaultRates()
	for i, entry := range entries {
		kind, rate, err := p.parseEntry(table, entry)
		if err != nil {
			p.logger.Debug("skipping rate entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		if kind == "" {
			continue
		}
		table[kind] = rate
	}
	return table, nil
}

// parseEntry returns an empty kind for entries that name no known kind.
func (p *Provider) parseEntry(table model.RateTable, entry any) (string, model.Rate, error) {
	raw, err := jsonpath.Get(p.cfg.NamePath, entry)
	if err != nil {
		return "", model.Rate{}, fmt.Errorf("house name: %w", err)
	}
	name, ok := raw.(string)
	if !ok {
		return "", model.Rate{}, fmt.Errorf("house name is %T, not a string", raw)
	}

	kind, _, ok := table.Lookup(p.alias(name))
	if !ok {
		return "", model.Rate{}, nil
	}

	buy, err := decimalAt(p.cfg.BuyPath, entry)
	if err != nil {
		return "", model.Rate{}, fmt.Errorf("%s buy: %w", kind, err)
	}
	sell, err := decimalAt(p.cfg.SellPath, entry)
	if err != nil {
		return "", model.Rate{}, fmt.Errorf("%s sell: %w", kind, err)
	}
	return kind, model.Rate{Buy: buy, Sell: sell}, nil
}

func (p *Provider) alias(name string) string {
	for from, to := range p.cfg.Aliases {
		if strings.EqualFold(from, strings.TrimSpace(name)) {
			return to
		}
	}
	return name
}

func decimalAt(path string, entry any) (decimal.Decimal, error) {
	raw, err := jsonpath.Get(path, entry)
	if err != nil {
		return decimal.Decimal{}, err
	}
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	}
	return decimal.Decimal{}, fmt.Errorf("value is %T, not a number", raw)
}

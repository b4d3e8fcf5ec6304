package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/database"
)

// History is the sales series and item master of one supplier
type History struct {
	Sales     []contracts.SalesRecord
	Items     []contracts.ItemMaster
	FromCache bool
}

// Empty reports whether there is nothing to forecast
func (h *History) Empty() bool {
	return h == nil || len(h.Sales) == 0
}

// ItemIndex returns the item master keyed by (article, branch)
func (h *History) ItemIndex() map[contracts.SeriesKey]contracts.ItemMaster {
	idx := make(map[contracts.SeriesKey]contracts.ItemMaster, len(h.Items))
	for _, m := range h.Items {
		idx[m.Key()] = m
	}
	return idx
}

// Provider serves supplier sales history from the label-keyed cache,
// rebuilding it from the upstream warehouse on a miss
// ⭐ SSOT: 판매 이력 로드는 여기서만
type Provider struct {
	layout artifacts.Layout
	source Source // nil = cache-only
	floor  time.Time
	log    zerolog.Logger
}

// NewProvider 새 판매 이력 제공자 생성
func NewProvider(layout artifacts.Layout, source Source, floor time.Time, log zerolog.Logger) *Provider {
	return &Provider{
		layout: layout,
		source: source,
		floor:  floor,
		log:    log.With().Str("component", "sales.provider").Logger(),
	}
}

// LoadOrBuild returns the cached history for label or rebuilds it.
// When the upstream cannot be reached the error wraps database.ErrUnavailable.
// Rebuilding rewrites the cache artifacts as a side effect.
func (p *Provider) LoadOrBuild(ctx context.Context, supplier int64, label string, window int) (*History, error) {
	cached, err := p.loadCache(label)
	if err == nil {
		p.log.Debug().
			Int64("supplier", supplier).
			Str("label", label).
			Int("sales", len(cached.Sales)).
			Msg("sales history loaded from cache")
		return cached, nil
	}
	p.log.Debug().Err(err).Str("label", label).Msg("sales cache miss")

	if p.source == nil {
		return nil, fmt.Errorf("no upstream configured for %s: %w", label, database.ErrUnavailable)
	}

	items, err := p.source.Items(ctx, supplier, window)
	if err != nil {
		p.log.Error().Err(err).Int64("supplier", supplier).Msg("item master query failed")
		return nil, fmt.Errorf("%w: %w", database.ErrUnavailable, err)
	}

	lines, err := p.source.Sales(ctx, supplier, p.floor)
	if err != nil {
		p.log.Error().Err(err).Int64("supplier", supplier).Msg("sales query failed")
		return nil, fmt.Errorf("%w: %w", database.ErrUnavailable, err)
	}

	joined := joinItems(lines, items)
	h := &History{Items: items, Sales: make([]contracts.SalesRecord, 0, len(joined))}
	for _, l := range joined {
		h.Sales = append(h.Sales, l.SalesRecord)
	}

	if err := p.writeCache(label, joined, h); err != nil {
		// 캐시 실패는 계산을 막지 않음
		p.log.Warn().Err(err).Str("label", label).Msg("failed to write sales cache")
	}

	p.log.Info().
		Int64("supplier", supplier).
		Str("label", label).
		Int("items", len(items)).
		Int("sales_lines", len(lines)).
		Int("joined", len(joined)).
		Msg("sales history rebuilt from upstream")

	return h, nil
}

func (p *Provider) loadCache(label string) (*History, error) {
	sales, err := artifacts.ReadSales(p.layout.Sales(label))
	if err != nil {
		return nil, err
	}
	items, err := artifacts.ReadItems(p.layout.Items(label))
	if err != nil {
		return nil, err
	}
	return &History{Sales: sales, Items: items, FromCache: true}, nil
}

func (p *Provider) writeCache(label string, joined []artifacts.SalesDetail, h *History) error {
	return errors.Join(
		artifacts.WriteItems(p.layout.Items(label), h.Items),
		artifacts.WriteSalesDetail(p.layout.Sales(label), joined),
		artifacts.WriteSales(p.layout.SalesCompact(label), h.Sales),
	)
}

// joinItems keeps the sales lines whose (article, branch) is in the item master
func joinItems(lines []artifacts.SalesDetail, items []contracts.ItemMaster) []artifacts.SalesDetail {
	known := make(map[contracts.SeriesKey]struct{}, len(items))
	for _, m := range items {
		known[m.Key()] = struct{}{}
	}

	out := make([]artifacts.SalesDetail, 0, len(lines))
	for _, l := range lines {
		if _, ok := known[l.Key()]; ok {
			out = append(out, l)
		}
	}
	return out
}

package reference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/redis"
)

// ErrMissingMapping is returned when a forecast row has no canonical product or site
var ErrMissingMapping = errors.New("missing product/site mapping")

// Source provides canonical identifiers of the downstream system
type Source interface {
	// Products maps numeric product ext_code → product id
	Products(ctx context.Context) (map[int64]string, error)
	// Sites maps numeric site code → site id
	Sites(ctx context.Context) (map[int64]string, error)
	// Supplier returns the supplier id of ext_code, "" when unknown
	Supplier(ctx context.Context, extCode int64) (string, error)
}

// Mapping is one snapshot of the product and site tables
type Mapping struct {
	Products map[int64]string `json:"products"`
	Sites    map[int64]string `json:"sites"`
}

// Extend attaches product_id and site_id to every row.
// Pairs with no product or site come back in missing (distinct, ordered).
func (m *Mapping) Extend(rows []contracts.ForecastRow) (extended []contracts.ExtendedRow, missing []contracts.SeriesKey) {
	seen := make(map[contracts.SeriesKey]struct{})
	extended = make([]contracts.ExtendedRow, 0, len(rows))

	for _, r := range rows {
		product, okP := m.Products[r.Article]
		site, okS := m.Sites[r.Branch]
		if !okP || !okS {
			if _, dup := seen[r.Key()]; !dup {
				seen[r.Key()] = struct{}{}
				missing = append(missing, r.Key())
			}
			continue
		}
		extended = append(extended, contracts.ExtendedRow{ForecastRow: r, ProductID: product, SiteID: site})
	}

	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Article != missing[j].Article {
			return missing[i].Article < missing[j].Article
		}
		return missing[i].Branch < missing[j].Branch
	})
	return extended, missing
}

// Resolver serves reference mappings through the redis cache
// ⭐ SSOT: product/site 매핑 조회는 여기서만
type Resolver struct {
	source Source
	cache  *redis.Cache
	log    zerolog.Logger
}

// NewResolver 새 resolver 생성
func NewResolver(source Source, cache *redis.Cache, log zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		cache:  cache,
		log:    log.With().Str("component", "reference.resolver").Logger(),
	}
}

// Load returns the current product and site mapping
func (r *Resolver) Load(ctx context.Context) (*Mapping, error) {
	products, err := redis.GetOrSet(ctx, r.cache, redis.ProductMapKey(), redis.TTLMedium, r.source.Products)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	sites, err := redis.GetOrSet(ctx, r.cache, redis.SiteMapKey(), redis.TTLMedium, r.source.Sites)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}

	r.log.Debug().Int("products", len(products)).Int("sites", len(sites)).Msg("reference mapping loaded")
	return &Mapping{Products: products, Sites: sites}, nil
}

// SupplierID returns the canonical supplier id of extCode, "" when unknown
func (r *Resolver) SupplierID(ctx context.Context, extCode int64) (string, error) {
	return redis.GetOrSet(ctx, r.cache, redis.SupplierKey(extCode), redis.TTLDaily, func(ctx context.Context) (string, error) {
		return r.source.Supplier(ctx, extCode)
	})
}

// Invalidate drops the cached mappings
func (r *Resolver) Invalidate(ctx context.Context) error {
	return r.cache.Delete(ctx, redis.ProductMapKey(), redis.SiteMapKey())
}

// numericCode parses a code column; non-numeric codes are not mappable
func numericCode(s string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

package airquality

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// Resolver source names.
const (
	SourceLive     = "live"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Resolver supplies a PM2.5 value for a city, or missing.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, city model.City) model.NullFloat
}

// Observer is the live measurement source used by Live.
type Observer interface {
	LatestPM25(ctx context.Context, lat, lon float64) model.NullFloat
}

// Live resolves from an Observer and writes successful readings through to Cache when set.
type Live struct {
	Observer Observer
	Cache    *Cache
}

// Name implements Resolver.
func (l *Live) Name() string { return SourceLive }

// Resolve implements Resolver.
func (l *Live) Resolve(ctx context.Context, city model.City) model.NullFloat {
	v := l.Observer.LatestPM25(ctx, city.Latitude, city.Longitude)
	if v.Valid && l.Cache != nil {
		if err := l.Cache.Put(ctx, city.Name, v.Value); err != nil {
			zap.L().Warn("airquality: cache write failed", zap.String("city", city.Name), zap.Error(err))
		}
	}
	return v
}

// Chain tries resolvers in priority order, returning the first present value.
type Chain struct {
	resolvers []Resolver
}

// NewChain creates a Chain. Resolvers are tried in the order given.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Resolve returns the first present value and the name of the resolver that supplied it.
// When every resolver misses, it returns missing and "".
func (c *Chain) Resolve(ctx context.Context, city model.City) (model.NullFloat, string) {
	for _, r := range c.resolvers {
		if v := r.Resolve(ctx, city); v.Valid {
			if r.Name() != SourceLive {
				zap.L().Warn("airquality: using substitute pm25",
					zap.String("city", city.Name),
					zap.String("source", r.Name()),
				)
			}
			return v, r.Name()
		}
	}
	return model.Missing(), ""
}

package airquality

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/air-quality-cli/internal/model"
)

// Cache stores the last successful live reading per city in SQLite.
type Cache struct {
	db    *sql.DB
	ttl   time.Duration
	clock clockwork.Clock
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS pm25_observations (
	city        TEXT PRIMARY KEY,
	pm25        REAL NOT NULL,
	observed_at INTEGER NOT NULL
);
`

// OpenCache opens (and migrates) the cache at dsn. A ttl <= 0 never expires entries.
func OpenCache(ctx context.Context, dsn string, ttl time.Duration, clock clockwork.Clock) (*Cache, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, stmt := range []string{"PRAGMA busy_timeout=5000", cacheMigration} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrap(err, "sqlite: migrate cache")
		}
	}
	return &Cache{db: db, ttl: ttl, clock: clock}, nil
}

// Put records v as the latest reading for city.
func (c *Cache) Put(ctx context.Context, city string, v float64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO pm25_observations (city, pm25, observed_at) VALUES (?, ?, ?)
		ON CONFLICT (city) DO UPDATE SET pm25 = excluded.pm25, observed_at = excluded.observed_at`,
		city, v, c.clock.Now().Unix(),
	)
	return eris.Wrap(err, "sqlite: put observation")
}

// Get returns the cached reading for city if it is younger than the ttl.
func (c *Cache) Get(ctx context.Context, city string) (model.NullFloat, error) {
	var v float64
	var observedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT pm25, observed_at FROM pm25_observations WHERE city = ?`, city,
	).Scan(&v, &observedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Missing(), nil
	}
	if err != nil {
		return model.Missing(), eris.Wrap(err, "sqlite: get observation")
	}
	if c.ttl > 0 && c.clock.Since(time.Unix(observedAt, 0)) > c.ttl {
		return model.Missing(), nil
	}
	return model.Some(v), nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Name implements Resolver.
func (c *Cache) Name() string { return SourceCache }

// Resolve implements Resolver. Read errors are logged and treated as a miss.
func (c *Cache) Resolve(ctx context.Context, city model.City) model.NullFloat {
	v, err := c.Get(ctx, city.Name)
	if err != nil {
		zap.L().Warn("airquality: cache read failed", zap.String("city", city.Name), zap.Error(err))
	}
	return v
}

package main

import (
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/air-quality-cli/internal/airquality"
	"github.com/sells-group/air-quality-cli/internal/config"
	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/pipeline"
	"github.com/sells-group/air-quality-cli/internal/resilience"
)

// newPipeline wires the OpenAQ client and the TIGER download fetcher from config.
func newPipeline(c *config.Config) *pipeline.Pipeline {
	client := airquality.NewClient(openAQFetcher(c.OpenAQ), airquality.ClientOptions{
		BaseURL:  c.OpenAQ.BaseURL,
		APIKey:   c.OpenAQ.APIKey,
		RadiusKM: c.OpenAQ.RadiusKM,
		Limit:    c.OpenAQ.Limit,
		Timeout:  time.Duration(c.OpenAQ.TimeoutSecs) * time.Second,
		Breaker:  openAQBreaker(c.OpenAQ),
	})

	tigerFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      10 * time.Minute,
		MaxRetries:   3,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	return pipeline.New(c, tigerFetcher, client, nil)
}

func openAQBreaker(c config.OpenAQConfig) *resilience.Breaker {
	log := zap.L().With(zap.String("component", "openaq.breaker"))
	return resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: c.BreakerThreshold,
		ResetTimeout:     time.Duration(c.BreakerResetSecs) * time.Second,
		OnStateChange: func(from, to resilience.State) {
			log.Warn("openaq circuit state change", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
}

// openAQFetcher builds the fetcher used for live lookups, rate limited per
// openaq.rate_per_sec on the configured host.
func openAQFetcher(c config.OpenAQConfig) *fetcher.HTTPFetcher {
	limiters := fetcher.DefaultRateLimiters()
	if u, err := url.Parse(c.BaseURL); err == nil && u.Hostname() != "" && c.RatePerSec > 0 {
		limiters[u.Hostname()] = rate.NewLimiter(rate.Limit(c.RatePerSec), 5)
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries:   c.MaxRetries,
		RateLimiters: limiters,
	})
}

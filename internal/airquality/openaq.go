// Package airquality resolves a PM2.5 reading per city from the OpenAQ latest
// endpoint, a local observation cache, and a static fallback table.
package airquality

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/model"
	"github.com/sells-group/air-quality-cli/internal/resilience"
)

// DefaultBaseURL is the OpenAQ v2 latest-measurements endpoint.
const DefaultBaseURL = "https://api.openaq.org/v2/latest"

// errNoData marks a well-formed response with nothing to average. It does not
// count against the breaker.
var errNoData = eris.New("openaq: no usable measurements")

// ClientOptions configures the OpenAQ client.
type ClientOptions struct {
	BaseURL  string
	APIKey   string
	RadiusKM float64
	Limit    int
	Timeout  time.Duration

	// Breaker, when set, stops calling the API after repeated request failures.
	Breaker *resilience.Breaker
}

// Client fetches the mean latest PM2.5 around a coordinate.
type Client struct {
	fetcher fetcher.Fetcher
	opts    ClientOptions
}

// NewClient creates an OpenAQ client that issues requests through f.
func NewClient(f fetcher.Fetcher, opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RadiusKM <= 0 {
		opts.RadiusKM = 25
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Client{fetcher: f, opts: opts}
}

type latestResponse struct {
	Results []struct {
		Measurements []struct {
			Value *float64 `json:"value"`
		} `json:"measurements"`
	} `json:"results"`
}

// LatestPM25 returns the mean of every pm25 measurement reported by stations
// within the radius. Every failure collapses to missing.
func (c *Client) LatestPM25(ctx context.Context, lat, lon float64) model.NullFloat {
	var noData error
	call := func(ctx context.Context) (model.NullFloat, error) {
		v, err := c.latest(ctx, lat, lon)
		if eris.Is(err, errNoData) {
			noData = err
			return v, nil
		}
		return v, err
	}

	var v model.NullFloat
	var err error
	if c.opts.Breaker != nil {
		v, err = resilience.Do(ctx, c.opts.Breaker, call)
	} else {
		v, err = call(ctx)
	}
	if err == nil {
		err = noData
	}
	if err != nil {
		zap.L().Warn("openaq: no pm25 reading",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return model.Missing()
	}
	return v
}

func (c *Client) latest(ctx context.Context, lat, lon float64) (model.NullFloat, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := c.fetcher.Download(ctx, c.requestURL(lat, lon))
	if err != nil {
		return model.Missing(), eris.Wrap(err, "openaq: request")
	}
	defer body.Close() //nolint:errcheck

	resp, err := fetcher.DecodeJSONObject[latestResponse](body)
	if err != nil {
		return model.Missing(), eris.Wrap(err, "openaq: parse response")
	}

	var sum float64
	var n int
	for _, loc := range resp.Results {
		for _, m := range loc.Measurements {
			if m.Value == nil {
				return model.Missing(), eris.Wrap(errNoData, "measurement without value")
			}
			sum += *m.Value
			n++
		}
	}
	if n == 0 {
		return model.Missing(), eris.Wrap(errNoData, "no measurements within radius")
	}
	return model.Some(sum / float64(n)), nil
}

func (c *Client) requestURL(lat, lon float64) string {
	params := url.Values{}
	params.Set("coordinates", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(int(c.opts.RadiusKM*1000)))
	params.Set("parameter", "pm25")
	params.Set("limit", strconv.Itoa(c.opts.Limit))
	if c.opts.APIKey != "" {
		params.Set("api_key", c.opts.APIKey)
	}
	return c.opts.BaseURL + "?" + params.Encode()
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/air-quality-cli/internal/config"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "air-quality-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_Flags(t *testing.T) {
	for _, name := range []string{"data-dir", "output-dir", "year", "metrics-textfile"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), "missing --%s flag", name)
	}
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	assert.Error(t, rootCmd.Args(rootCmd, []string{"extra"}))
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("data-dir", "", "")
	cmd.Flags().String("output-dir", "", "")
	cmd.Flags().Int("year", 0, "")
	cmd.Flags().String("metrics-textfile", "", "")
	require.NoError(t, cmd.Flags().Set("output-dir", "out"))
	require.NoError(t, cmd.Flags().Set("year", "2023"))

	c := &config.Config{Data: config.DataConfig{Dir: "data"}, Output: config.OutputConfig{Dir: "outputs"}}
	applyFlagOverrides(cmd, c)
	assert.Equal(t, "data", c.Data.Dir)
	assert.Equal(t, "out", c.Output.Dir)
	assert.Equal(t, 2023, c.Analysis.Year)
	assert.Empty(t, c.Metrics.Textfile)
}

func TestOpenAQFetcher_NoPanicOnBadURL(t *testing.T) {
	assert.NotNil(t, openAQFetcher(config.OpenAQConfig{BaseURL: "::bad", TimeoutSecs: 1, RatePerSec: 1}))
}

func TestOpenAQFetcher_RateLimitWithPort(t *testing.T) {
	f := openAQFetcher(config.OpenAQConfig{BaseURL: "http://127.0.0.1:8080/v2/latest", TimeoutSecs: 1, MaxRetries: 1, RatePerSec: 2})
	lim := f.LimiterFor("http://127.0.0.1:8080/v2/latest?coordinates=1,2")
	assert.Equal(t, rate.Limit(2), lim.Limit())
}

func TestRootCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("AIRQ_OPENAQ_BASE_URL", "http://127.0.0.1:1/v2/latest")
	t.Setenv("AIRQ_OPENAQ_TIMEOUT_SECS", "1")
	t.Setenv("AIRQ_LOG_LEVEL", "error")

	out := filepath.Join(dir, "outputs")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	prom := filepath.Join(dir, "airq.prom")
	rootCmd.SetArgs([]string{"--output-dir", out, "--metrics-textfile", prom})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "Completed run")

	csv, err := os.ReadFile(filepath.Join(out, "metrics_by_city.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "Tampa,27.9506,-82.4572,,,0")
	assert.FileExists(t, filepath.Join(out, "metrics_by_city.geojson"))
	assert.FileExists(t, filepath.Join(out, "air_quality_map.html"))
	assert.FileExists(t, prom)
}

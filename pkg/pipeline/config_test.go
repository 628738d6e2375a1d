package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caia-Tech/ff6-dataset/internal/scraping"
)

// clearEnv unsets keys for the duration of the test
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

var overrideKeys = []string{
	"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "CAIA_LOG_LEVEL",
	"TEMPORAL_HOST", "DATABASE_URL", "ELASTICSEARCH_URL", "PORT",
}

func TestLoadPipelineConfig_Defaults(t *testing.T) {
	clearEnv(t, overrideKeys...)
	t.Chdir(t.TempDir())

	config, err := LoadPipelineConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "ff6-dataset", config.Temporal.TaskQueue)
	assert.Equal(t, "localhost:7233", config.Temporal.HostPort)
	assert.Empty(t, config.Expansion.APIKey)
	assert.Equal(t, scraping.RobotsWarn, config.Wiki.RobotsPolicy)
}

func TestLoadPipelineConfig_EnvOverrides(t *testing.T) {
	clearEnv(t, overrideKeys...)
	t.Chdir(t.TempDir())

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("TEMPORAL_HOST", "temporal:7233")
	t.Setenv("ELASTICSEARCH_URL", "http://es:9200")
	t.Setenv("PORT", "9091")
	t.Setenv("CAIA_LOG_LEVEL", "debug")

	config, err := LoadPipelineConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", config.Expansion.APIKey)
	assert.Equal(t, "temporal:7233", config.Temporal.HostPort)
	assert.Equal(t, []string{"http://es:9200"}, config.Export.ElasticsearchURLs)
	assert.Equal(t, 9091, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadPipelineConfig_InvalidPortIgnored(t *testing.T) {
	clearEnv(t, overrideKeys...)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "not-a-port")

	config, err := LoadPipelineConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadPipelineConfig_DotEnv(t *testing.T) {
	clearEnv(t, overrideKeys...)
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("ANTHROPIC_API_KEY=from-dotenv\nTEMPORAL_HOST=dotenv:7233\n"), 0o644))

	// the process environment wins over .env
	t.Setenv("TEMPORAL_HOST", "env:7233")

	config, err := LoadPipelineConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", config.Expansion.APIKey)
	assert.Equal(t, "env:7233", config.Temporal.HostPort)
}

func TestLoadPipelineConfig_File(t *testing.T) {
	clearEnv(t, overrideKeys...)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090},
		"wiki": {"robots_policy": "ignore"},
		"review": {"sample_size": 25}
	}`), 0o644))

	config, err := LoadPipelineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, scraping.RobotsIgnore, config.Wiki.RobotsPolicy)
	assert.Equal(t, 25, config.Review.SampleSize)
	// untouched sections keep their defaults
	assert.Equal(t, "ff6-dataset", config.Temporal.TaskQueue)
}

func TestLoadPipelineConfig_Errors(t *testing.T) {
	clearEnv(t, overrideKeys...)
	dir := t.TempDir()
	t.Chdir(dir)

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "malformed json", content: `{"server":`, errMsg: "failed to parse config file"},
		{name: "robots policy", content: `{"wiki":{"robots_policy":"sometimes"}}`, errMsg: "invalid robots policy"},
		{name: "negative threshold", content: `{"cleaning":{"min_section_length":-1}}`, errMsg: "must not be negative"},
		{name: "sample size", content: `{"review":{"sample_size":0}}`, errMsg: "sample size"},
		{name: "port", content: `{"server":{"port":70000}}`, errMsg: "invalid server port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := LoadPipelineConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := LoadPipelineConfig(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestPresetConfigs(t *testing.T) {
	prod := ProductionPipelineConfig()
	assert.True(t, prod.Snapshot.Enabled)
	assert.Equal(t, scraping.RobotsEnforce, prod.Wiki.RobotsPolicy)
	assert.Equal(t, "json", prod.Logging.Format)
	require.NoError(t, prod.Validate())

	dev := DevelopmentPipelineConfig()
	assert.False(t, dev.Snapshot.Enabled)
	assert.Equal(t, "debug", dev.Logging.Level)
	require.NoError(t, dev.Validate())

	assert.Equal(t, "0.0.0.0:8080", DefaultPipelineConfig().Server.Addr())
}

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "Authorization=Bearer a=b, X-Team = mixers")

	cfg := LoadFromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "circuit-mixer", cfg.ServiceName)
	assert.Equal(t, "collector:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "Bearer a=b", cfg.Headers["Authorization"], "values may contain '='")
	assert.Equal(t, "mixers", cfg.Headers["X-Team"])
}

func TestLoadFromEnvDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	assert.False(t, LoadFromEnv().Enabled)
}

func TestParseRatio(t *testing.T) {
	assert.Equal(t, 1.0, parseRatio(""))
	assert.Equal(t, 1.0, parseRatio("garbage"))
	assert.Equal(t, 0.25, parseRatio("0.25"))
	assert.Equal(t, 0.0, parseRatio("-3"))
	assert.Equal(t, 1.0, parseRatio("7"))
}

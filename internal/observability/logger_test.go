package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug"))
	assert.Equal(t, "WARN", parseLogLevel(" Warning "))
	assert.Equal(t, "TRACE", parseLogLevel("TRACE"))
	assert.Equal(t, "INFO", parseLogLevel("bogus"))
	assert.Equal(t, "INFO", parseLogLevel(""))
}

func TestServerLoggerConfig(t *testing.T) {
	cfg := serverLoggerConfig("domainsearch", "error", "domainsearch")
	assert.Equal(t, logging.ProfileStructured, cfg.Profile)
	assert.Equal(t, "ERROR", cfg.DefaultLevel)
	assert.Equal(t, "domainsearch", cfg.StaticFields["namespace"])
	assert.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "json", cfg.Sinks[0].Format)

	bare := serverLoggerConfig("domainsearch", "info", "")
	assert.NotContains(t, bare.StaticFields, "namespace")
}

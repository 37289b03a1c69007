package blinkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmbeddedConfig_ExtractsFields(t *testing.T) {
	body := []byte(`<html><script>window.grofers.CONFIG = {"requestKey":"rk123","appVersion":"45000100"};</script></html>`)
	cfg, err := parseEmbeddedConfig(body)
	require.NoError(t, err)
	assert.Equal(t, "rk123", cfg.RequestKey)
	assert.Equal(t, "45000100", cfg.AppVersion)
}

func TestParseEmbeddedConfig_MissingMarker(t *testing.T) {
	_, err := parseEmbeddedConfig([]byte(`<html>nothing here</html>`))
	assert.Error(t, err)
}

func TestExtractDeviceID_FindsCookieValue(t *testing.T) {
	id := extractDeviceID("gr_1_deviceId=abc-123; gr_1_lat=12.9")
	assert.Equal(t, "abc-123", id)
}

func TestExtractDeviceID_MissingCookieReturnsEmpty(t *testing.T) {
	id := extractDeviceID("gr_1_lat=12.9")
	assert.Equal(t, "", id)
}

func TestExtractDeviceID_LastCookieNoTrailingSemicolon(t *testing.T) {
	id := extractDeviceID("gr_1_lat=12.9; gr_1_deviceId=xyz")
	assert.Equal(t, "xyz", id)
}

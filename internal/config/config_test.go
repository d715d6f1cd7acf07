package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ANNOTATE_IDENTITY", "ANNOTATE_PRIVILEGED", "ANNOTATE_VIEW_ONLY", "ANNOTATE_TRANSPORT",
	"ANNOTATE_CODEC", "ANNOTATE_TCP_PORT", "ANNOTATE_HOST_ADDRESS", "ANNOTATE_WEBSOCKET_URL",
	"ANNOTATE_WEBSOCKET_LISTEN", "ANNOTATE_SESSION", "ANNOTATE_MDNS", "ANNOTATE_REDIS_ADDR",
	"ANNOTATE_REDIS_PASSWORD", "ANNOTATE_LIVEKIT_URL", "ANNOTATE_LIVEKIT_API_KEY",
	"ANNOTATE_LIVEKIT_API_SECRET", "ANNOTATE_LIVEKIT_ROOM", "ANNOTATE_METRICS_ADDR", "ANNOTATE_FIT",
	"ANNOTATE_CONTENT_WIDTH", "ANNOTATE_CONTENT_HEIGHT", "ANNOTATE_COLOR", "ANNOTATE_LINE_WIDTH",
	"ANNOTATE_FONT_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANNOTATE_IDENTITY", "alice")

	cfg, errs := Load("")
	require.Empty(t, errs)
	assert.Equal(t, "alice", cfg.Identity)
	assert.Equal(t, TransportTCP, cfg.Transport)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, DefaultTCPPort, cfg.TCPPort)
	assert.Equal(t, DefaultSession, cfg.Session)
	assert.True(t, cfg.MDNS)
	assert.True(t, cfg.Hosting())
	assert.Equal(t, DefaultLineWidth, cfg.LineWidth)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
identity: teacher-1
privileged: true
transport: redis
codec: cbor
redis_addr: localhost:6379
redis_password: hunter2hunter2
fit: cover
content_width: 1920
content_height: 1080
`)
	t.Setenv("ANNOTATE_FIT", "fill")
	t.Setenv("ANNOTATE_PRIVILEGED", "no")

	cfg, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, "teacher-1", cfg.Identity)
	assert.False(t, cfg.Privileged)
	assert.Equal(t, TransportRedis, cfg.Transport)
	assert.Equal(t, "cbor", cfg.Codec)
	assert.Equal(t, "fill", cfg.Fit)
	assert.Equal(t, 1920, cfg.ContentWidth)
	assert.False(t, cfg.Hosting())
	assert.Equal(t, "hunt****", cfg.LogSummary()["redis_password"])
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, errs := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Nil(t, cfg)
	require.Len(t, errs, 1)
}

func TestLoadBadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANNOTATE_IDENTITY", "a")
	t.Setenv("ANNOTATE_TCP_PORT", "eighty")

	_, errs := Load("")
	assert.Len(t, errs, 1)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Identity: "a", Transport: TransportTCP, Codec: "json", TCPPort: 8888,
			Fit: "contain", ContentWidth: 1280, ContentHeight: 720, LineWidth: 0.01, FontSize: 0.02,
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   []error
	}{
		{"valid", func(*Config) {}, nil},
		{"no identity", func(c *Config) { c.Identity = "" }, []error{ErrMissingIdentity}},
		{"bad transport", func(c *Config) { c.Transport = "carrier-pigeon" }, []error{ErrInvalidTransport}},
		{"cbor over tcp", func(c *Config) { c.Codec = "cbor" }, []error{ErrBinaryOverTCP}},
		{"bad port", func(c *Config) { c.TCPPort = 70000 }, []error{ErrInvalidPort}},
		{"bad fit", func(c *Config) { c.Fit = "zoom" }, []error{ErrInvalidFit}},
		{"bad brush", func(c *Config) { c.LineWidth = 2 }, []error{ErrInvalidBrush}},
		{"websocket without url", func(c *Config) { c.Transport = TransportWebSocket }, []error{ErrMissingWebSocketURL}},
		{"livekit incomplete", func(c *Config) { c.Transport = TransportLiveKit }, []error{ErrMissingLiveKitURL, ErrMissingLiveKitAPIKey, ErrMissingLiveKitRoom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Equal(t, tt.want, c.Validate())
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "<not set>", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd****", maskSecret("abcdefghij"))
}

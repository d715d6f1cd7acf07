// Package config loads participant and session settings.
// It uses koanf to merge an optional YAML file with ANNOTATE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Transports.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
	TransportLiveKit   = "livekit"
	TransportLoopback  = "loopback"
)

// Defaults.
const (
	DefaultTransport     = TransportTCP
	DefaultCodec         = "json"
	DefaultTCPPort       = 8888
	DefaultSession       = "default"
	DefaultFit           = "contain"
	DefaultContentWidth  = 1280
	DefaultContentHeight = 720
	DefaultColor         = "#e11d48"
	DefaultLineWidth     = 0.004
	DefaultFontSize      = 0.02
)

var (
	ErrMissingIdentity      = errors.New("identity is required")
	ErrInvalidTransport     = errors.New("transport must be one of tcp, websocket, redis, livekit, loopback")
	ErrInvalidCodec         = errors.New("codec must be json or cbor")
	ErrInvalidPort          = errors.New("tcp_port must be between 1 and 65535")
	ErrInvalidFit           = errors.New("fit must be contain, cover or fill")
	ErrMissingWebSocketURL  = errors.New("websocket_url is required for the websocket transport")
	ErrMissingRedisAddr     = errors.New("redis_addr is required for the redis transport")
	ErrMissingLiveKitURL    = errors.New("livekit_url is required for the livekit transport")
	ErrMissingLiveKitAPIKey = errors.New("livekit_api_key and livekit_api_secret are required for the livekit transport")
	ErrMissingLiveKitRoom   = errors.New("livekit_room is required for the livekit transport")
	ErrBinaryOverTCP        = errors.New("the cbor codec cannot be used with the line-framed tcp transport")
	ErrInvalidSize          = errors.New("content_width and content_height must be positive")
	ErrInvalidBrush         = errors.New("line_width and font_size must be within (0,1]")
)

// Config holds one participant's settings.
type Config struct {
	Identity   string `koanf:"identity"`
	Privileged bool   `koanf:"privileged"`
	ViewOnly   bool   `koanf:"view_only"`

	Transport       string `koanf:"transport"`
	Codec           string `koanf:"codec"`
	TCPPort         int    `koanf:"tcp_port"`
	HostAddress     string `koanf:"host_address"` // empty: host the session
	WebSocketURL    string `koanf:"websocket_url"`
	WebSocketListen string `koanf:"websocket_listen"` // serve a relay on this address
	Session         string `koanf:"session"`
	MDNS            bool   `koanf:"mdns"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	LiveKitURL       string `koanf:"livekit_url"`
	LiveKitAPIKey    string `koanf:"livekit_api_key"`
	LiveKitAPISecret string `koanf:"livekit_api_secret"`
	LiveKitRoom      string `koanf:"livekit_room"`

	MetricsAddr string `koanf:"metrics_addr"`

	Fit           string `koanf:"fit"`
	ContentWidth  int    `koanf:"content_width"`
	ContentHeight int    `koanf:"content_height"`

	Color     string  `koanf:"color"`
	LineWidth float64 `koanf:"line_width"`
	FontSize  float64 `koanf:"font_size"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables take precedence over file values. It returns the
// config and every problem found; a file that cannot be read is fatal.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, err := envInt("ANNOTATE_TCP_PORT", k.Int("tcp_port"), DefaultTCPPort)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	width, err := envInt("ANNOTATE_CONTENT_WIDTH", k.Int("content_width"), DefaultContentWidth)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	height, err := envInt("ANNOTATE_CONTENT_HEIGHT", k.Int("content_height"), DefaultContentHeight)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	lineWidth, err := envFloat("ANNOTATE_LINE_WIDTH", k.Float64("line_width"), DefaultLineWidth)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	fontSize, err := envFloat("ANNOTATE_FONT_SIZE", k.Float64("font_size"), DefaultFontSize)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		Identity:         envString("ANNOTATE_IDENTITY", k, "identity", ""),
		Privileged:       envBool("ANNOTATE_PRIVILEGED", k, "privileged", false),
		ViewOnly:         envBool("ANNOTATE_VIEW_ONLY", k, "view_only", false),
		Transport:        strings.ToLower(envString("ANNOTATE_TRANSPORT", k, "transport", DefaultTransport)),
		Codec:            strings.ToLower(envString("ANNOTATE_CODEC", k, "codec", DefaultCodec)),
		TCPPort:          port,
		HostAddress:      envString("ANNOTATE_HOST_ADDRESS", k, "host_address", ""),
		WebSocketURL:     envString("ANNOTATE_WEBSOCKET_URL", k, "websocket_url", ""),
		WebSocketListen:  envString("ANNOTATE_WEBSOCKET_LISTEN", k, "websocket_listen", ""),
		Session:          envString("ANNOTATE_SESSION", k, "session", DefaultSession),
		MDNS:             envBool("ANNOTATE_MDNS", k, "mdns", true),
		RedisAddr:        envString("ANNOTATE_REDIS_ADDR", k, "redis_addr", ""),
		RedisPassword:    envString("ANNOTATE_REDIS_PASSWORD", k, "redis_password", ""),
		LiveKitURL:       envString("ANNOTATE_LIVEKIT_URL", k, "livekit_url", ""),
		LiveKitAPIKey:    envString("ANNOTATE_LIVEKIT_API_KEY", k, "livekit_api_key", ""),
		LiveKitAPISecret: envString("ANNOTATE_LIVEKIT_API_SECRET", k, "livekit_api_secret", ""),
		LiveKitRoom:      envString("ANNOTATE_LIVEKIT_ROOM", k, "livekit_room", ""),
		MetricsAddr:      envString("ANNOTATE_METRICS_ADDR", k, "metrics_addr", ""),
		Fit:              strings.ToLower(envString("ANNOTATE_FIT", k, "fit", DefaultFit)),
		ContentWidth:     width,
		ContentHeight:    height,
		Color:            envString("ANNOTATE_COLOR", k, "color", DefaultColor),
		LineWidth:        lineWidth,
		FontSize:         fontSize,
	}

	errs := cfg.Validate()
	return cfg, append(loadErrs, errs...)
}

// Validate reports every invalid or missing value.
func (c *Config) Validate() []error {
	var errs []error

	if c.Identity == "" {
		errs = append(errs, ErrMissingIdentity)
	}
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	switch c.Codec {
	case "json", "cbor":
	default:
		errs = append(errs, ErrInvalidCodec)
	}
	switch c.Fit {
	case "contain", "cover", "fill":
	default:
		errs = append(errs, ErrInvalidFit)
	}
	if c.ContentWidth <= 0 || c.ContentHeight <= 0 {
		errs = append(errs, ErrInvalidSize)
	}
	if c.LineWidth <= 0 || c.LineWidth > 1 || c.FontSize <= 0 || c.FontSize > 1 {
		errs = append(errs, ErrInvalidBrush)
	}

	switch c.Transport {
	case TransportTCP:
		if c.Codec == "cbor" {
			errs = append(errs, ErrBinaryOverTCP)
		}
	case TransportWebSocket:
		if c.WebSocketURL == "" && c.WebSocketListen == "" {
			errs = append(errs, ErrMissingWebSocketURL)
		}
	case TransportRedis:
		if c.RedisAddr == "" {
			errs = append(errs, ErrMissingRedisAddr)
		}
	case TransportLiveKit:
		if c.LiveKitURL == "" {
			errs = append(errs, ErrMissingLiveKitURL)
		}
		if c.LiveKitAPIKey == "" || c.LiveKitAPISecret == "" {
			errs = append(errs, ErrMissingLiveKitAPIKey)
		}
		if c.LiveKitRoom == "" {
			errs = append(errs, ErrMissingLiveKitRoom)
		}
	case TransportLoopback:
	default:
		errs = append(errs, ErrInvalidTransport)
	}
	return errs
}

// Hosting reports whether this participant hosts the tcp session.
func (c *Config) Hosting() bool {
	return c.Transport == TransportTCP && c.HostAddress == ""
}

// LogSummary returns the configuration for logging with secrets masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"identity":           c.Identity,
		"privileged":         strconv.FormatBool(c.Privileged),
		"view_only":          strconv.FormatBool(c.ViewOnly),
		"transport":          c.Transport,
		"codec":              c.Codec,
		"tcp_port":           strconv.Itoa(c.TCPPort),
		"host_address":       c.HostAddress,
		"websocket_url":      c.WebSocketURL,
		"websocket_listen":   c.WebSocketListen,
		"session":            c.Session,
		"mdns":               strconv.FormatBool(c.MDNS),
		"redis_addr":         c.RedisAddr,
		"redis_password":     maskSecret(c.RedisPassword),
		"livekit_url":        c.LiveKitURL,
		"livekit_api_key":    maskSecret(c.LiveKitAPIKey),
		"livekit_api_secret": maskSecret(c.LiveKitAPISecret),
		"livekit_room":       c.LiveKitRoom,
		"metrics_addr":       c.MetricsAddr,
		"fit":                c.Fit,
		"content_size":       fmt.Sprintf("%dx%d", c.ContentWidth, c.ContentHeight),
	}
}

// maskSecret shows only the first 4 characters of secrets of 8 or more.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

func envString(envKey string, k *koanf.Koanf, koanfKey, def string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if val := k.String(koanfKey); val != "" {
		return val
	}
	return def
}

func envBool(envKey string, k *koanf.Koanf, koanfKey string, def bool) bool {
	v := def
	if k.Exists(koanfKey) {
		v = k.Bool(koanfKey)
	}
	switch strings.ToLower(os.Getenv(envKey)) {
	case "true", "1", "yes", "on":
		v = true
	case "false", "0", "no", "off":
		v = false
	}
	return v
}

func envInt(envKey string, koanfVal, def int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return def, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return def, nil
}

func envFloat(envKey string, koanfVal, def float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return def, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return def, nil
}

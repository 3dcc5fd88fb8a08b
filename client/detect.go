package client

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/influxgate/influxgate/config"
	"github.com/influxgate/influxgate/gateerr"
)

// probeTimeout bounds each detection probe; detection runs once at startup
// and is never re-run per request.
const probeTimeout = 5 * time.Second

// DetectVersion probes the 2.x readiness endpoint first, then the 1.x ping
// endpoint, and reports which dialect answered.
func DetectVersion(baseURL string) (string, error) {
	return detectVersion(baseURL, resty.New().SetTimeout(probeTimeout))
}

func detectVersion(baseURL string, rc *resty.Client) (string, error) {
	resp, err := rc.R().Get(baseURL + "/api/v2/ready")
	if err == nil && resp.StatusCode() == http.StatusOK {
		log.Info().Msg("detected InfluxDB 2.x via /api/v2/ready")
		return "2", nil
	}
	log.Warn().Str("url", baseURL).Msg("no answer on /api/v2/ready, trying 1.x /ping")

	// 1.x answers its ping with 204 No Content.
	resp, err = rc.R().Get(baseURL + "/ping")
	if err == nil && resp.StatusCode() == http.StatusNoContent {
		log.Info().Msg("detected InfluxDB 1.x via /ping")
		return "1", nil
	}
	return "", gateerr.New(gateerr.ConnectionFailure,
		"could not detect InfluxDB version at %s; set INFLUX_VERSION=1 or INFLUX_VERSION=2", baseURL)
}

// New builds the dialect client selected by configuration, auto-detecting
// the dialect when the configured version is "auto".
func New(cfg config.Settings) (Client, error) {
	version := cfg.Version
	if version == "auto" || version == "" {
		detected, err := DetectVersion(cfg.URL)
		if err != nil {
			return nil, err
		}
		version = detected
	}
	switch version {
	case "2":
		return NewV2Client(cfg), nil
	case "1":
		return NewV1Client(cfg)
	default:
		return nil, gateerr.New(gateerr.ConnectionFailure, "unsupported InfluxDB version %q", version)
	}
}

// NewWithFallback never fails: when the real client cannot be built, the
// returned client is permanently failed and reports the captured cause on
// every call, so the process starts and surfaces errors instead of
// crash-looping.
func NewWithFallback(cfg config.Settings) Client {
	c, err := New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize InfluxDB client, continuing with failed-state client")
		return &failedClient{cause: err}
	}
	return c
}

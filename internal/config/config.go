package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"unidelas/safety-agent/internal/model"
)

// Config lists the tunable parameters for the safety agent.
type Config struct {
	HTTPPort         int
	APIBaseURL       string
	BrokerAddress    string // empty means discover via mDNS
	DatabasePath     string
	LogLevel         string
	RequestTimeout   time.Duration
	LocationTimeout  time.Duration
	SubmitTimeout    time.Duration
	DiscoveryTimeout time.Duration

	// Fixed position served to the dispatcher. When unset, location
	// acquisition behaves as a refused permission.
	Location        model.Coordinates
	LocationGranted bool
}

const (
	defaultHTTPPort         = 8765
	defaultAPIBaseURL       = "http://localhost:3100"
	defaultDatabasePath     = "data/unidelas-agent.db"
	defaultLogLevel         = "info"
	defaultRequestTimeout   = 10 * time.Second
	defaultLocationTimeout  = 5 * time.Second
	defaultSubmitTimeout    = 10 * time.Second
	defaultDiscoveryTimeout = 5 * time.Second
)

// Load derives configuration values from environment variables, falling
// back to defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         defaultHTTPPort,
		APIBaseURL:       defaultAPIBaseURL,
		DatabasePath:     defaultDatabasePath,
		LogLevel:         defaultLogLevel,
		RequestTimeout:   defaultRequestTimeout,
		LocationTimeout:  defaultLocationTimeout,
		SubmitTimeout:    defaultSubmitTimeout,
		DiscoveryTimeout: defaultDiscoveryTimeout,
	}

	if v := os.Getenv("UNIDELAS_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_HTTP_PORT: %w", err)
		}
		cfg.HTTPPort = port
	}

	if v := os.Getenv("UNIDELAS_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}

	if v := os.Getenv("UNIDELAS_BROKER"); v != "" {
		cfg.BrokerAddress = v
	}

	if v := os.Getenv("UNIDELAS_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	if v := os.Getenv("UNIDELAS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("UNIDELAS_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := os.Getenv("UNIDELAS_LOCATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_LOCATION_TIMEOUT: %w", err)
		}
		cfg.LocationTimeout = d
	}

	if v := os.Getenv("UNIDELAS_SUBMIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_SUBMIT_TIMEOUT: %w", err)
		}
		cfg.SubmitTimeout = d
	}

	if v := os.Getenv("UNIDELAS_DISCOVERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_DISCOVERY_TIMEOUT: %w", err)
		}
		cfg.DiscoveryTimeout = d
	}

	lat, latSet := os.Getenv("UNIDELAS_LOCATION_LAT"), false
	lng, lngSet := os.Getenv("UNIDELAS_LOCATION_LNG"), false

	if lat != "" {
		v, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_LOCATION_LAT: %w", err)
		}
		cfg.Location.Latitude = v
		latSet = true
	}
	if lng != "" {
		v, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UNIDELAS_LOCATION_LNG: %w", err)
		}
		cfg.Location.Longitude = v
		lngSet = true
	}

	if latSet != lngSet {
		return Config{}, fmt.Errorf("UNIDELAS_LOCATION_LAT and UNIDELAS_LOCATION_LNG must be set together")
	}
	if latSet && lngSet {
		if !cfg.Location.Valid() {
			return Config{}, fmt.Errorf("location (%s, %s) is outside WGS84 bounds", lat, lng)
		}
		cfg.LocationGranted = true
	}

	return cfg, nil
}

package config

import (
	"errors"
	"net/url"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

type Options struct {
	BaseURL      string `long:"base-url" env:"UNPOD_BASE_URL" description:"Unpod base URL (e.g. https://app.unpod.example)"`
	Token        string `long:"token" env:"UNPOD_API_TOKEN" description:"Unpod API token"`
	Headless     bool   `long:"headless" env:"UNPOD_HEADLESS" description:"Run notifier in headless mode (GUI builds only)"`
	AutoConnect  bool   `long:"auto-connect" env:"AUTO_CONNECT" description:"Connect on startup when base URL and token are configured"`
	Rainbow      bool   `long:"rainbow" description:"Enable rainbow border animation in headless TUI"`
	LogDir       string `long:"log-dir" env:"UNPOD_LOG_DIR" description:"Directory for notifier log files (defaults to the user cache dir)"`
	PollInterval int    `long:"poll-interval" env:"UNPOD_POLL_INTERVAL" description:"Feed poll interval in seconds when realtime is unavailable"`
	Debug        bool   `long:"debug" env:"UNPOD_DEBUG" description:"Enable verbose debug output"`
}

type APIEndpoints struct {
	BaseURL              string
	RealtimeConfigURL    string
	ConnectionTokenURL   string
	SubscriptionTokenURL string
	FeedURL              string
	FeedUpdateURL        string
}

const (
	realtimeConfigPath    = "/notifications/realtime/config/"
	connectionTokenPath   = "/notifications/realtime/token/"
	subscriptionTokenPath = "/notifications/realtime/subscription-token/"
	feedPath              = "/notifications/"
	feedUpdatePath        = "/notifications/update/"
)

func ParseOptions() (Options, error) {
	_ = godotenv.Load()
	opts := Options{}
	if _, err := flags.Parse(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func ValidateRequired(opts Options) error {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return errors.New("base URL is required")
	}
	if strings.TrimSpace(opts.Token) == "" {
		return errors.New("API token is required")
	}
	return nil
}

func BuildEndpoints(rawBaseURL string) (APIEndpoints, error) {
	apiBaseURL, err := buildAPIBaseURL(rawBaseURL)
	if err != nil {
		return APIEndpoints{}, err
	}
	return APIEndpoints{
		BaseURL:              apiBaseURL,
		RealtimeConfigURL:    apiBaseURL + realtimeConfigPath,
		ConnectionTokenURL:   apiBaseURL + connectionTokenPath,
		SubscriptionTokenURL: apiBaseURL + subscriptionTokenPath,
		FeedURL:              apiBaseURL + feedPath,
		FeedUpdateURL:        apiBaseURL + feedUpdatePath,
	}, nil
}

func buildAPIBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	parsed, err := url.Parse(value)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("expected absolute URL like https://example.com")
	}
	if !strings.EqualFold(parsed.Scheme, "http") && !strings.EqualFold(parsed.Scheme, "https") {
		return "", errors.New("base URL scheme must be http or https")
	}

	// Normalize any pasted endpoint/path to canonical API base.
	parsed.Path = "/api"
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return strings.TrimRight(parsed.String(), "/"), nil
}

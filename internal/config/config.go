package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	KindRadarr = "radarr"
	KindSonarr = "sonarr"

	FormatJSON = "json"
	FormatCSV  = "csv"
)

type Config struct {
	App struct {
		DataPath string `yaml:"data_path"`
		LogLevel string `yaml:"log_level"`
		LogFile  string `yaml:"log_file"`
	} `yaml:"app"`

	Arr struct {
		Kind    string `yaml:"kind"` // 'radarr' or 'sonarr'
		URL     string `yaml:"url"`
		APIKey  string `yaml:"api_key"`
		Timeout string `yaml:"timeout"`
	} `yaml:"arr"`

	Tagging struct {
		ScoreThreshold int    `yaml:"score_threshold"`
		MotongEnabled  bool   `yaml:"motong_enabled"`
		MotongGroup    string `yaml:"motong_group"`
		K4Enabled      bool   `yaml:"k4_enabled"`
	} `yaml:"tagging"`

	Schedule struct {
		IntervalMinutes int    `yaml:"interval_minutes"`
		RetryMinutes    int    `yaml:"retry_minutes"`
		Cron            string `yaml:"cron"` // optional, replaces the interval when set
		TestMode        bool   `yaml:"test_mode"`
		TestLimit       int    `yaml:"test_limit"`
	} `yaml:"schedule"`

	Results struct {
		Format    string `yaml:"output_format"`
		Directory string `yaml:"output_directory"`
		Keep      int    `yaml:"keep"`
		MinFreeMB uint64 `yaml:"min_free_mb"`
	} `yaml:"results"`

	Database struct {
		Enabled  bool   `yaml:"enabled"`
		Path     string `yaml:"path"`
		KeepRuns int    `yaml:"keep_runs"`
	} `yaml:"database"`

	Server struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"server"`

	Notifications struct {
		PushbulletAPIKey string `yaml:"pushbullet_api_key"`
		OnlyOnChanges    bool   `yaml:"only_on_changes"`
	} `yaml:"notifications"`
}

// Load reads path if it exists, then applies environment overrides. A missing
// file is not an error so the tool can run from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() Config {
	var cfg Config
	setDefaults(&cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.App.DataPath = "./data"
	cfg.App.LogLevel = "INFO"

	cfg.Arr.Kind = KindRadarr
	cfg.Arr.Timeout = "30s"

	cfg.Tagging.ScoreThreshold = 100
	cfg.Tagging.MotongEnabled = false
	cfg.Tagging.MotongGroup = "motong"
	cfg.Tagging.K4Enabled = true

	cfg.Schedule.IntervalMinutes = 20
	cfg.Schedule.RetryMinutes = 5
	cfg.Schedule.TestLimit = 5

	cfg.Results.Format = FormatJSON
	cfg.Results.Directory = "results"
	cfg.Results.Keep = 5

	cfg.Database.Enabled = false
	cfg.Database.Path = "./data/tagarr.db"
	cfg.Database.KeepRuns = 50

	cfg.Server.Port = 8282
}

func loadFromEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	// The per-application variables pick the kind as well.
	if v := os.Getenv("RADARR_URL"); v != "" {
		cfg.Arr.Kind = KindRadarr
		cfg.Arr.URL = v
		setString("RADARR_API_KEY", &cfg.Arr.APIKey)
	}
	if v := os.Getenv("SONARR_URL"); v != "" {
		cfg.Arr.Kind = KindSonarr
		cfg.Arr.URL = v
		setString("SONARR_API_KEY", &cfg.Arr.APIKey)
	}
	setString("ARR_KIND", &cfg.Arr.Kind)
	setString("ARR_URL", &cfg.Arr.URL)
	setString("ARR_API_KEY", &cfg.Arr.APIKey)
	setString("LOG_LEVEL", &cfg.App.LogLevel)
	setString("OUTPUT_FORMAT", &cfg.Results.Format)
	setString("OUTPUT_DIRECTORY", &cfg.Results.Directory)
	setString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	setString("PUSHBULLET_API_KEY", &cfg.Notifications.PushbulletAPIKey)

	var errs []error
	if v := os.Getenv("SCORE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SCORE_THRESHOLD: %w", err))
		} else {
			cfg.Tagging.ScoreThreshold = n
		}
	}
	if v := os.Getenv("INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("INTERVAL_MINUTES: %w", err))
		} else {
			cfg.Schedule.IntervalMinutes = n
		}
	}
	if v := os.Getenv("MOTONG"); v != "" {
		cfg.Tagging.MotongEnabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("K4"); v != "" {
		cfg.Tagging.K4Enabled = strings.EqualFold(v, "true")
	}
	return errors.Join(errs...)
}

// Normalize lowercases enumerations and replaces an unknown output format
// with json. It reports whether the format had to be replaced.
func (c *Config) Normalize() (formatReplaced bool) {
	c.Arr.Kind = strings.ToLower(strings.TrimSpace(c.Arr.Kind))
	c.Arr.URL = strings.TrimRight(strings.TrimSpace(c.Arr.URL), "/")
	c.Results.Format = strings.ToLower(strings.TrimSpace(c.Results.Format))
	if c.Results.Format != FormatJSON && c.Results.Format != FormatCSV {
		c.Results.Format = FormatJSON
		formatReplaced = true
	}
	if c.Tagging.MotongGroup == "" {
		c.Tagging.MotongGroup = "motong"
	}
	if c.Results.Keep <= 0 {
		c.Results.Keep = 5
	}
	if c.Schedule.TestLimit <= 0 {
		c.Schedule.TestLimit = 5
	}
	return formatReplaced
}

// Validate reports every missing or malformed required value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Arr.URL == "" {
		errs = append(errs, errors.New("arr.url is required"))
	}
	if c.Arr.APIKey == "" {
		errs = append(errs, errors.New("arr.api_key is required"))
	}
	if c.Arr.Kind != KindRadarr && c.Arr.Kind != KindSonarr {
		errs = append(errs, fmt.Errorf("arr.kind must be %q or %q, got %q", KindRadarr, KindSonarr, c.Arr.Kind))
	}
	if _, err := time.ParseDuration(c.Arr.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("arr.timeout: %w", err))
	}
	if c.Schedule.IntervalMinutes <= 0 {
		errs = append(errs, errors.New("schedule.interval_minutes must be positive"))
	}
	if c.Schedule.RetryMinutes <= 0 {
		errs = append(errs, errors.New("schedule.retry_minutes must be positive"))
	}
	if spec := strings.TrimSpace(c.Schedule.Cron); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
		}
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

func (c *Config) ArrTimeout() time.Duration {
	d, err := time.ParseDuration(c.Arr.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Schedule.RetryMinutes) * time.Minute
}

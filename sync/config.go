package sync

import (
	"fmt"
	"os"

	"go.uber.org/config"
)

// Config is the service configuration. It is loaded once at startup and not modified afterwards.
type Config struct {
	Debug             bool
	Port              string
	RecordRequestsDir string
	Log               LogSettings
	Capture           CaptureSettings
	Campaign          CampaignSettings
	// Attributes is the raw comma separated list of capture attributes to sync.
	Attributes    string
	Lists         string
	IdentityMode  IdentityMode
	SnakeCaseVars bool

	environment map[string]interface{}
}

type LogSettings struct {
	File     string
	MaxBytes int
	Backups  int
	Format   string
}

type CaptureSettings struct {
	URI          string
	ClientID     string
	ClientSecret string
	SchemaName   string
}

type CampaignSettings struct {
	URI       string
	APIKey    string
	APISecret string
}

// environmentSettings mirrors defaults.yaml.
type environmentSettings struct {
	Debug                bool   `yaml:"DEBUG"`
	Port                 string `yaml:"APP_PORT"`
	LogFile              string `yaml:"APP_LOG_FILE"`
	LogFileSize          int    `yaml:"APP_LOG_FILESIZE"`
	LogNumBackups        int    `yaml:"APP_LOG_NUM_BACKUPS"`
	LogFormat            string `yaml:"APP_LOG_FORMAT"`
	RecordRequestsDir    string `yaml:"APP_RECORD_REQUESTS_DIR"`
	JanrainURI           string `yaml:"JANRAIN_URI"`
	JanrainClientID      string `yaml:"JANRAIN_CLIENT_ID"`
	JanrainClientSecret  string `yaml:"JANRAIN_CLIENT_SECRET"`
	JanrainSchemaName    string `yaml:"JANRAIN_SCHEMA_NAME"`
	JanrainAttributes    string `yaml:"JANRAIN_ATTRIBUTES"`
	SailthruAPIURI       string `yaml:"SAILTHRU_API_URI"`
	SailthruAPIKey       string `yaml:"SAILTHRU_API_KEY"`
	SailthruAPISecret    string `yaml:"SAILTHRU_API_SECRET"`
	SailthruLists        string `yaml:"SAILTHRU_LISTS"`
	SailthruIdentityMode string `yaml:"SAILTHRU_IDENTITY_MODE"`
	SailthruSnakeCase    bool   `yaml:"SAILTHRU_SNAKE_CASE_VARS"`
}

func (s environmentSettings) config() Config {
	return Config{
		Debug:             s.Debug,
		Port:              s.Port,
		RecordRequestsDir: s.RecordRequestsDir,
		Log: LogSettings{
			File:     s.LogFile,
			MaxBytes: s.LogFileSize,
			Backups:  s.LogNumBackups,
			Format:   s.LogFormat,
		},
		Capture: CaptureSettings{
			URI:          s.JanrainURI,
			ClientID:     s.JanrainClientID,
			ClientSecret: s.JanrainClientSecret,
			SchemaName:   s.JanrainSchemaName,
		},
		Campaign: CampaignSettings{
			URI:       s.SailthruAPIURI,
			APIKey:    s.SailthruAPIKey,
			APISecret: s.SailthruAPISecret,
		},
		Attributes:    s.JanrainAttributes,
		Lists:         s.SailthruLists,
		IdentityMode:  IdentityMode(s.SailthruIdentityMode),
		SnakeCaseVars: s.SailthruSnakeCase,
	}
}

// LoadConfig reads the embedded defaults, any mapping files and then the environment.
func LoadConfig(opts ...ConfigOption) (Config, error) {
	options := configOptions{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&options)
	}

	var result Config
	defaultsFile := DefaultsMappingFile()
	yamlOptions := []config.YAMLOption{config.Source(defaultsFile.Reader)}
	for _, s := range options.sources {
		if s.Length > 0 {
			yamlOptions = append(yamlOptions, config.Source(s.Reader))
		}
	}
	yaml, err := config.NewYAML(yamlOptions...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	defaults := make(map[string]interface{})
	if err = yaml.Get(config.Root).Populate(&defaults); err != nil {
		return result, fmt.Errorf("failed to read defaults from yaml config %w", err)
	}

	resolved := resolveEnvironment(defaults, options.lookupEnv)
	yaml, err = config.NewYAML(config.Static(resolved))
	if err != nil {
		return result, fmt.Errorf("failed to read environment config %w", err)
	}
	var settings environmentSettings
	if err = yaml.Get(config.Root).Populate(&settings); err != nil {
		return result, fmt.Errorf("failed to read environment config %w", err)
	}

	result = settings.config()
	result.environment = resolved
	return result, result.Validate()
}

// Validate checks settings that must be correct before any webhook is handled.
// An empty attribute list is not checked here, it is reported per webhook.
func (c Config) Validate() error {
	switch c.IdentityMode {
	case EmailPrimary, ExtIDPrimaryWithMerge:
	default:
		return &ConfigurationError{Setting: "SAILTHRU_IDENTITY_MODE", Reason: fmt.Sprintf("unsupported identity mode %q", c.IdentityMode)}
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return &ConfigurationError{Setting: "APP_LOG_FORMAT", Reason: fmt.Sprintf("unsupported log format %q", c.Log.Format)}
	}
	return nil
}

// Environment returns the resolved settings as KEY=value lines with secrets masked.
func (c Config) Environment() []string {
	return dumpEnvironment(c.environment)
}

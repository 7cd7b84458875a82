package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Chart     ChartConfig     `yaml:"chart" envconfig:"CHART"`
	Mail      MailConfig      `yaml:"mail" envconfig:"MAIL"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console stdout file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig locates measurement input and report output
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Extension string `yaml:"extension" envconfig:"EXTENSION" validate:"required,startswith=."`
}

// AnalysisConfig controls how measurement files are read and summarised
type AnalysisConfig struct {
	// Threshold in MOhm; channels strictly below it form the filtered average.
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD" validate:"gt=0"`
	// SkipLines are zero-based physical line numbers ignored by the reader.
	SkipLines []int `yaml:"skip_lines" envconfig:"SKIP_LINES" validate:"dive,gte=0"`
}

// ChartConfig contains figure rendering options
type ChartConfig struct {
	Width    int `yaml:"width" envconfig:"WIDTH" validate:"gte=200"`
	Height   int `yaml:"height" envconfig:"HEIGHT" validate:"gte=200"`
	BarWidth int `yaml:"bar_width" envconfig:"BAR_WIDTH" validate:"gte=1"`
	// YMax fixes the upper bound of the y axis; zero means automatic.
	YMax float64 `yaml:"y_max" envconfig:"Y_MAX" validate:"gte=0"`
}

// MailConfig contains SMTP delivery configuration
type MailConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	Host            string        `yaml:"host" envconfig:"HOST" validate:"required_if=Enabled true"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	From            string        `yaml:"from" envconfig:"FROM" validate:"omitempty,email"`
	Recipient       string        `yaml:"recipient" envconfig:"RECIPIENT" validate:"required_if=Enabled true,omitempty,email"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	CredentialStore string        `yaml:"credential_store" envconfig:"CREDENTIAL_STORE" validate:"oneof=env file"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	UsernameEnv     string        `yaml:"username_env" envconfig:"USERNAME_ENV"`
	PasswordEnv     string        `yaml:"password_env" envconfig:"PASSWORD_ENV"`
	// SealKeyEnv names the variable holding the passphrase of the sealed file.
	SealKeyEnv string `yaml:"seal_key_env" envconfig:"SEAL_KEY_ENV"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName    string        `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string        `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string        `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout file"`
	TraceFile      string        `yaml:"trace_file" envconfig:"TRACE_FILE" validate:"required_if=TraceExporter file"`
	PushgatewayURL string        `yaml:"pushgateway_url" envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`
	PushJob        string        `yaml:"push_job" envconfig:"PUSH_JOB"`
	StepTimeout    time.Duration `yaml:"step_timeout" envconfig:"STEP_TIMEOUT" validate:"gt=0"`
}

// Default returns the configuration used when neither a file nor the
// environment overrides a value.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: filepath.Join(DefaultLogsDir, DefaultLogFile),
		},
		Paths: PathsConfig{
			InputDir:  ".",
			OutputDir: DefaultOutputDir,
			Extension: DefaultExtension,
		},
		Analysis: AnalysisConfig{
			Threshold: DefaultThresholdMOhm,
			SkipLines: append([]int(nil), DefaultSkipLines...),
		},
		Chart: ChartConfig{
			Width:    DefaultChartWidth,
			Height:   DefaultChartHeight,
			BarWidth: DefaultBarWidth,
		},
		Mail: MailConfig{
			Enabled:         true,
			Host:            DefaultSMTPHost,
			Port:            DefaultSMTPPort,
			Timeout:         DefaultMailTimeout,
			CredentialStore: "env",
			CredentialsFile: DefaultCredentialsFile,
			UsernameEnv:     EnvPrefix + "_SMTP_USERNAME",
			PasswordEnv:     EnvPrefix + "_SMTP_PASSWORD",
			SealKeyEnv:      EnvPrefix + "_SEAL_KEY",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   ServiceName,
			Environment:   "production",
			TraceExporter: "none",
			PushJob:       ServiceName,
			StepTimeout:   DefaultStepTimeout,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// IMPEDANCE_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML document onto cfg; keys absent from the
// file keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the first config file that exists, or "".
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	for _, candidate := range []string{"config.yaml", filepath.Join("configs", "config.yaml")} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Paths.Extension = strings.ToLower(c.Paths.Extension)
	if c.Paths.Extension != "" && !strings.HasPrefix(c.Paths.Extension, ".") {
		c.Paths.Extension = "." + c.Paths.Extension
	}
	if c.Telemetry.PushJob == "" {
		c.Telemetry.PushJob = c.Telemetry.ServiceName
	}
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}

	if c.Mail.Enabled && c.Mail.CredentialStore == "file" && (c.Mail.CredentialsFile == "" || c.Mail.SealKeyEnv == "") {
		return fmt.Errorf("mail.credentials_file and mail.seal_key_env are required when credential_store is file")
	}
	if c.Mail.Enabled && c.Mail.CredentialStore == "env" && (c.Mail.UsernameEnv == "" || c.Mail.PasswordEnv == "") {
		return fmt.Errorf("mail.username_env and mail.password_env are required when credential_store is env")
	}

	return nil
}

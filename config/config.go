package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configFileEnv = "CONFIG_FILE"

// Config holds all application configuration.
type Config struct {
	FileEncoding  string `yaml:"file_encoding" validate:"required"`
	PreambleLines int    `yaml:"preamble_lines" validate:"gte=0"`
	CSVDelimiter  string `yaml:"csv_delimiter" validate:"len=1"`

	OutputPath         string `yaml:"output_path" validate:"required"`
	JSONIndent         int    `yaml:"json_indent" validate:"gte=0,lte=16"`
	JSONEscapeNonASCII bool   `yaml:"json_escape_non_ascii"`

	SkipInvalidRows bool `yaml:"skip_invalid_rows"`
	Workers         int  `yaml:"workers" validate:"gte=1,lte=64"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`

	MetricsTextfile string `yaml:"metrics_textfile"`
	PrintSummary    bool   `yaml:"print_summary"`

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool `yaml:"-"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		FileEncoding:       "utf-8",
		PreambleLines:      5,
		CSVDelimiter:       ";",
		OutputPath:         "output.json",
		JSONIndent:         4,
		JSONEscapeNonASCII: true,
		Workers:            1,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// Load builds the Config from defaults, the optional YAML file named by
// CONFIG_FILE, a .env file and the process environment, in that order.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(configFileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err == nil {
		cfg.EnvFileLoaded = true
	}

	cfg.FileEncoding = getEnv("FILE_ENCODING", cfg.FileEncoding)
	cfg.PreambleLines = getEnvInt("PREAMBLE_LINES", cfg.PreambleLines)
	cfg.CSVDelimiter = getEnv("CSV_DELIMITER", cfg.CSVDelimiter)

	cfg.OutputPath = getEnv("OUTPUT_PATH", cfg.OutputPath)
	cfg.JSONIndent = getEnvInt("JSON_INDENT", cfg.JSONIndent)
	cfg.JSONEscapeNonASCII = getEnvBool("JSON_ESCAPE_NON_ASCII", cfg.JSONEscapeNonASCII)

	cfg.SkipInvalidRows = getEnvBool("SKIP_INVALID_ROWS", cfg.SkipInvalidRows)
	cfg.Workers = getEnvInt("WORKERS", cfg.Workers)

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))

	cfg.MetricsTextfile = getEnv("METRICS_TEXTFILE", cfg.MetricsTextfile)
	cfg.PrintSummary = getEnvBool("PRINT_SUMMARY", cfg.PrintSummary)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of c.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("config: invalid %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("config: %w", err)
	}
	if strings.ContainsAny(c.CSVDelimiter, "\"\r\n") {
		return fmt.Errorf("config: invalid CSVDelimiter %q", c.CSVDelimiter)
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	return []rune(c.CSVDelimiter)[0]
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode yaml %q: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Backend   Backend   `yaml:"backend"`
	Server    Server    `yaml:"server"`
	Dashboard Dashboard `yaml:"dashboard"`
	Sheets    Sheets    `yaml:"sheets"`
	ReportAPI ReportAPI `yaml:"report_api"`
	Output    Output    `yaml:"output"`
	Logging   Logging   `yaml:"logging"`
}

// Backend is the analytics service the dashboard reads its report from.
type Backend struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Server struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RateLimitRPS      float64       `yaml:"rate_limit_rps"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
}

type Dashboard struct {
	MaxIssueQuotes int `yaml:"max_issue_quotes"`
}

// Sheets configures the sampler. Backend is "google" or "sqlite".
type Sheets struct {
	Backend         string `yaml:"backend"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	WorkbookPath    string `yaml:"workbook_path"`
}

type ReportAPI struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	ReportPath         string   `yaml:"report_path"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConfigDir returns the XDG config directory for vocdash.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "vocdash")
}

// DataDir returns the XDG data directory for vocdash.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "vocdash")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/vocdash/config.yaml > ./config.yaml
// It returns "" without error when no file exists and none was requested.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Backend: Backend{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Server: Server{
			Host:              "127.0.0.1",
			Port:              3000,
			ReadHeaderTimeout: 10 * time.Second,
			RequestTimeout:    15 * time.Second,
			RateLimitRPS:      2,
			RateLimitBurst:    10,
		},
		Dashboard: Dashboard{MaxIssueQuotes: 2},
		Sheets: Sheets{
			Backend:         "google",
			SheetName:       "raw data",
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		ReportAPI: ReportAPI{
			Host:       "127.0.0.1",
			Port:       8000,
			ReportPath: "voc_report.json",
		},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values from the environment. Unset or blank
// variables leave the config untouched.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set("VOC_API_BASE_URL", &c.Backend.BaseURL)
	set("GOOGLE_SHEETS_SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
	set("GOOGLE_SHEETS_SHEET_NAME", &c.Sheets.SheetName)
	set("VOC_REPORT_PATH", &c.ReportAPI.ReportPath)
	set("VOC_LOG_LEVEL", &c.Logging.Level)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetWorkbookPath returns the SQLite workbook location.
func (c *Config) GetWorkbookPath() string {
	if c.Sheets.WorkbookPath != "" {
		return c.Sheets.WorkbookPath
	}
	return filepath.Join(c.GetDataDir(), "workbook.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

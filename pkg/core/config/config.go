// Package config loads service configuration: defaults, then a YAML file,
// then environment variables (.env included).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"fsi_kpi/pkg/core/agent"
	"fsi_kpi/pkg/core/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// DefaultPath is read when no config file is given.
const DefaultPath = "config/app.yaml"

// Line-item sources.
const (
	SourceDB  = "db"
	SourceRAG = "rag"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Source    string           `yaml:"source" validate:"oneof=db rag"`
	Companies []string         `yaml:"companies" validate:"min=1,dive,required"`
	Batch     BatchConfig      `yaml:"batch"`
	RAG       RAGConfig        `yaml:"rag"`
	LLM       agent.Config     `yaml:"llm"`
	Log       logger.LogConfig `yaml:"log"`
	Keys      KeysConfig       `yaml:"-"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DSN returns URL when set, otherwise builds a postgres URL from the parts.
// Empty when nothing is configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Host == "" || d.Name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

type BatchConfig struct {
	Concurrency      int     `yaml:"concurrency" validate:"min=1,max=64"`
	Schedule         string  `yaml:"schedule"` // cron, empty disables the periodic audit
	BalanceTolerance float64 `yaml:"balance_tolerance" validate:"min=0,max=1"`
}

type RAGConfig struct {
	Backend        string        `yaml:"backend" validate:"oneof=file pgvector"`
	IndexPath      string        `yaml:"index_path"`
	Table          string        `yaml:"table"`
	EmbeddingModel string        `yaml:"embedding_model"`
	K              int           `yaml:"k" validate:"min=1"`
	QAK            int           `yaml:"qa_k" validate:"min=1"`
	FetchK         int           `yaml:"fetch_k" validate:"gtefield=QAK"`
	Lambda         float64       `yaml:"lambda" validate:"gt=0,lte=1"`
	Extraction     bool          `yaml:"extraction"`
	CacheDir       string        `yaml:"cache_dir"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// KeysConfig holds secrets; they only come from the environment.
type KeysConfig struct {
	Gemini string
	OpenAI string
}

// DefaultCompanies is the company list of the batch audit.
var DefaultCompanies = []string{
	"HDFC", "ITC", "HCL", "ICICI Bank", "Infosys",
	"Larsen & Toubro", "Bajaj Finance", "Airtel", "Tata Motors",
}

func NewDefaultConfig() *Config {
	return &Config{
		Server:    ServerConfig{ListenAddr: ":8000"},
		Database:  DatabaseConfig{Port: 5432},
		Source:    SourceDB,
		Companies: append([]string(nil), DefaultCompanies...),
		Batch:     BatchConfig{Concurrency: 4, BalanceTolerance: 0.005},
		RAG: RAGConfig{
			Backend:   "file",
			IndexPath: "data/index.json",
			K:         3,
			QAK:       10,
			FetchK:    50,
			Lambda:    0.5,
		},
		LLM: agent.Config{
			ActiveProvider: "gemini",
			Agents: map[string]agent.AgentConfig{
				agent.TaskQA:         {Description: "Answers questions over indexed statements"},
				agent.TaskExtraction: {Description: "Reads line-item values out of statement text"},
			},
		},
		Log: logger.LogConfig{Level: "INFO", Format: "text"},
	}
}

// Load reads .env, then path (DefaultPath when empty; a missing default file
// is not an error), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := NewDefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.Log = logger.LoadConfigFromEnv(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := cast.ToIntE(v); err == nil {
			cfg.Database.Port = p
		}
	}
	if v := os.Getenv("KPI_SOURCE"); v != "" {
		cfg.Source = strings.ToLower(v)
	}
	if v := os.Getenv("KPI_COMPANIES"); v != "" {
		var companies []string
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				companies = append(companies, c)
			}
		}
		cfg.Companies = companies
	}
	if v := os.Getenv("BATCH_SCHEDULE"); v != "" {
		cfg.Batch.Schedule = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("RAG_INDEX_PATH"); v != "" {
		cfg.RAG.IndexPath = v
	}
	if v := os.Getenv("RAG_BACKEND"); v != "" {
		cfg.RAG.Backend = v
	}
	if v := os.Getenv("RAG_EXTRACTION"); v != "" {
		cfg.RAG.Extraction = cast.ToBool(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.ActiveProvider = v
	}
	cfg.Keys.Gemini = os.Getenv("GEMINI_API_KEY")
	cfg.Keys.OpenAI = os.Getenv("OPENAI_API_KEY")
}

var validate = validator.New()

// Validate checks struct constraints and the cron schedule.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Batch.Schedule != "" {
		if err := ValidateSchedule(c.Batch.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// RequireDatabase fails when no database is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.DSN() == "" {
		return fmt.Errorf("database not configured: set DATABASE_URL or DB_HOST/DB_NAME")
	}
	return nil
}

// ValidateSchedule parses a five-field cron expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

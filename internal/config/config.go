package config

import "time"

// Default configuration values.
const (
	defaultScoringEndpoint = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"
	defaultScoringDelay    = 1 * time.Second
	defaultScoringTimeout  = 30 * time.Second
	defaultPageSize        = 50
	defaultPageRetries     = 3
	defaultPageRetryDelay  = 5 * time.Second
	defaultMongoDatabase   = "neighborly-dev"
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "neighborly"
	defaultDBSSLMode       = "disable"
	defaultOutputFile      = "flagged_messages.json"
	defaultReportsTable    = "reports"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultMetricsPort     = 9090

	defaultToxicityThreshold       = 0.7
	defaultIdentityAttackThreshold = 0.5
	defaultInsultThreshold         = 0.8
	defaultProfanityThreshold      = 0.9
	defaultThreatThreshold         = 0.4
)

// Config holds all configuration for the moderation pipeline.
type Config struct {
	Scoring    ScoringConfig    `yaml:"scoring"`
	Thresholds ThresholdConfig  `yaml:"thresholds"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Database   DatabaseConfig   `yaml:"database"`
	Sources    []SourceConfig   `yaml:"sources"`
	Output     OutputConfig     `yaml:"output"`
	Reports    ReportsConfig    `yaml:"reports"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ScoringConfig holds settings for the external toxicity-scoring service.
type ScoringConfig struct {
	Endpoint string        `env:"PERSPECTIVE_API_URL" yaml:"endpoint"`
	APIKey   string        `env:"PERSPECTIVE_API_KEY" yaml:"api_key"`
	// MinInterval is the minimum delay between consecutive scoring calls.
	MinInterval time.Duration `yaml:"min_interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ThresholdConfig holds the per-attribute flagging thresholds, each in [0,1].
type ThresholdConfig struct {
	Toxicity       float64 `env:"THRESHOLD_TOXICITY"        yaml:"toxicity"`
	IdentityAttack float64 `env:"THRESHOLD_IDENTITY_ATTACK" yaml:"identity_attack"`
	Insult         float64 `env:"THRESHOLD_INSULT"          yaml:"insult"`
	Profanity      float64 `env:"THRESHOLD_PROFANITY"       yaml:"profanity"`
	Threat         float64 `env:"THRESHOLD_THREAT"          yaml:"threat"`
}

// PipelineConfig holds batch iteration settings.
type PipelineConfig struct {
	PageSize       int           `env:"PAGE_SIZE" yaml:"page_size"`
	PageRetries    int           `yaml:"page_retries"`
	PageRetryDelay time.Duration `yaml:"page_retry_delay"`
}

// MongoConfig holds document store connection settings.
type MongoConfig struct {
	URI      string `env:"MONGO_URI" yaml:"uri"`
	Database string `yaml:"database"`
}

// DatabaseConfig holds relational store connection settings.
// URI, when set, takes precedence over the individual fields.
type DatabaseConfig struct {
	URI      string `env:"POSTGRES_URI"      yaml:"uri"`
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// IdentityFieldConfig maps one flag-record identity slot to a source column.
type IdentityFieldConfig struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
}

// LookupConfig resolves an identity field by matching a row value against
// another collection (e.g. sender name to user id).
type LookupConfig struct {
	Collection    string `yaml:"collection"`
	MatchField    string `yaml:"match_field"`
	IdentityField string `yaml:"identity_field"`
}

// SourceConfig describes one ingestible table or collection.
type SourceConfig struct {
	Name          string                `yaml:"name"`
	Store         string                `yaml:"store"` // "postgres" or "mongo"
	Table         string                `yaml:"table"`
	Columns       []string              `yaml:"columns"`
	ContentField  string                `yaml:"content_field"`
	IDField       string                `yaml:"id_field"`
	Identity      []IdentityFieldConfig `yaml:"identity"`
	UsernameField string                `yaml:"username_field"`
	GroupField    string                `yaml:"group_field"`
	Category      string                `yaml:"category"`
	Lookup        *LookupConfig         `yaml:"lookup"`
}

// OutputConfig holds the report artifact settings.
type OutputConfig struct {
	File string `env:"OUTPUT_FILE" yaml:"file"`
}

// ReportsConfig holds the optional relational sink settings.
type ReportsConfig struct {
	Enabled bool   `env:"REPORTS_ENABLED" yaml:"enabled"`
	Table   string `yaml:"table"`
	// Migrate applies the reports schema migration at startup.
	Migrate bool `yaml:"migrate"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// MetricsConfig holds the optional Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `env:"METRICS_PORT" yaml:"port"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return LoadWithDefaults[Config](path, SetDefaults)
}

// SetDefaults applies default values to the config.
func SetDefaults(cfg *Config) {
	setScoringDefaults(&cfg.Scoring)
	setThresholdDefaults(&cfg.Thresholds)
	setPipelineDefaults(&cfg.Pipeline)
	setMongoDefaults(&cfg.Mongo)
	setDatabaseDefaults(&cfg.Database)
	setOutputDefaults(&cfg.Output)
	setReportsDefaults(&cfg.Reports)
	setLoggingDefaults(&cfg.Logging)
	setMetricsDefaults(&cfg.Metrics)
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
}

func setScoringDefaults(s *ScoringConfig) {
	if s.Endpoint == "" {
		s.Endpoint = defaultScoringEndpoint
	}
	if s.MinInterval == 0 {
		s.MinInterval = defaultScoringDelay
	}
	if s.Timeout == 0 {
		s.Timeout = defaultScoringTimeout
	}
}

func setThresholdDefaults(t *ThresholdConfig) {
	if t.Toxicity == 0 {
		t.Toxicity = defaultToxicityThreshold
	}
	if t.IdentityAttack == 0 {
		t.IdentityAttack = defaultIdentityAttackThreshold
	}
	if t.Insult == 0 {
		t.Insult = defaultInsultThreshold
	}
	if t.Profanity == 0 {
		t.Profanity = defaultProfanityThreshold
	}
	if t.Threat == 0 {
		t.Threat = defaultThreatThreshold
	}
}

func setPipelineDefaults(p *PipelineConfig) {
	if p.PageSize == 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageRetries == 0 {
		p.PageRetries = defaultPageRetries
	}
	if p.PageRetryDelay == 0 {
		p.PageRetryDelay = defaultPageRetryDelay
	}
}

func setMongoDefaults(m *MongoConfig) {
	if m.Database == "" {
		m.Database = defaultMongoDatabase
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
}

func setOutputDefaults(o *OutputConfig) {
	if o.File == "" {
		o.File = defaultOutputFile
	}
}

func setReportsDefaults(r *ReportsConfig) {
	if r.Table == "" {
		r.Table = defaultReportsTable
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

func setMetricsDefaults(m *MetricsConfig) {
	if m.Port == 0 {
		m.Port = defaultMetricsPort
	}
}

// DefaultSources returns the descriptor set for the standard deployment:
// the comments and content tables in PostgreSQL and the messages collection
// in MongoDB.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:         "comments",
			Store:        "postgres",
			Table:        "comments",
			Columns:      []string{"contentid", "commentid", "userid", "text", "username"},
			ContentField: "text",
			IDField:      "commentid",
			Identity: []IdentityFieldConfig{
				{Name: "contentid", Column: "contentid"},
				{Name: "commentid", Column: "commentid"},
				{Name: "userid", Column: "userid"},
			},
			UsernameField: "username",
			Category:      "comment",
		},
		{
			Name:         "content",
			Store:        "postgres",
			Table:        "content",
			Columns:      []string{"contentid", "userid", "body", "username", "type"},
			ContentField: "body",
			IDField:      "contentid",
			Identity: []IdentityFieldConfig{
				{Name: "contentid", Column: "contentid"},
				{Name: "userid", Column: "userid"},
			},
			UsernameField: "username",
			Category:      "content",
		},
		{
			Name:         "messages",
			Store:        "mongo",
			Table:        "messages",
			ContentField: "msg",
			IDField:      "_id",
			Identity: []IdentityFieldConfig{
				{Name: "messageid", Column: "_id"},
			},
			UsernameField: "senderName",
			GroupField:    "group_id",
			Category:      "msg",
			Lookup: &LookupConfig{
				Collection:    "users",
				MatchField:    "senderName",
				IdentityField: "userid",
			},
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// MigrationConfig holds the full TOML-driven migration configuration.
type MigrationConfig struct {
	Source        SourceConfig      `toml:"source"`
	Target        TargetConfig      `toml:"target"`
	Strategy      string            `toml:"strategy"`        // naive|naive-aggregate|interactive|interactive-aggr
	NameResolver  string            `toml:"name_resolver"`   // original|java|snake
	OnGraphExists string            `toml:"on_graph_exists"` // error|recreate|merge
	IncludeTables []string          `toml:"include_tables"`
	ExcludeTables []string          `toml:"exclude_tables"`
	Mapping       string            `toml:"mapping"` // path to the JSON/YAML mapping document
	SchemaOnly    bool              `toml:"schema_only"`
	Workers       int               `toml:"workers"`
	BatchSize     int               `toml:"batch_size"`
	LogLevel      string            `toml:"log_level"`
	Inheritance   InheritanceConfig `toml:"inheritance"`
	Hooks         HooksConfig       `toml:"hooks"`
	TypeMapping   TypeMappingConfig `toml:"type_mapping"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// SourceConfig identifies the relational source engine and connection string.
type SourceConfig struct {
	Type    string `toml:"type"` // "mysql", "sqlite" or "postgres"
	DSN     string `toml:"dsn"`
	Schema  string `toml:"schema"`  // PostgreSQL schema to read (default: "public")
	Charset string `toml:"charset"` // character set for MySQL connection (default: "utf8mb4")
}

// TargetConfig identifies the graph store receiving the model and the data.
type TargetConfig struct {
	Type     string `toml:"type"` // "neo4j", "postgres" or "memory"
	DSN      string `toml:"dsn"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"` // Neo4j database name
	Schema   string `toml:"schema"`   // PostgreSQL schema holding the graph (default: "graph")
}

type InheritanceConfig struct {
	HibernateMapping string `toml:"hibernate_mapping"`
}

type HooksConfig struct {
	BeforeImport []string `toml:"before_import"`
	AfterImport  []string `toml:"after_import"`
}

// TypeMappingConfig controls non-lossless type coercions.
type TypeMappingConfig struct {
	TinyInt1AsBoolean bool `toml:"tinyint1_as_boolean"`
	Binary16AsUUID    bool `toml:"binary16_as_uuid"`
	SetAsList         bool `toml:"set_as_list"`
	UnknownAsString   bool `toml:"unknown_as_string"`
}

const (
	strategyNaive           = "naive"
	strategyNaiveAggregate  = "naive-aggregate"
	strategyInteractive     = "interactive"
	strategyInteractiveAggr = "interactive-aggr"
)

// loadConfig reads a TOML config file and returns a MigrationConfig with defaults applied.
// envFile, when set, is loaded instead of the .env file next to the config.
func loadConfig(path, envFile string) (*MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := MigrationConfig{
		Strategy:      strategyNaiveAggregate,
		NameResolver:  "original",
		OnGraphExists: "error",
		BatchSize:     500,
		LogLevel:      "info",
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, configErrorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if err := loadEnvFile(cfg.configDir, envFile); err != nil {
		return nil, err
	}
	for _, field := range []*string{&cfg.Source.DSN, &cfg.Target.DSN, &cfg.Target.Username, &cfg.Target.Password} {
		expanded, err := expandEnvRefs(*field)
		if err != nil {
			return nil, err
		}
		*field = expanded
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *MigrationConfig) validate() error {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers()
	}
	if c.BatchSize <= 0 {
		return configErrorf("batch_size must be greater than zero")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return configErrorf("log_level must be one of: debug, info, warn, error")
	}

	switch c.Strategy {
	case strategyNaive, strategyNaiveAggregate, strategyInteractive, strategyInteractiveAggr:
	default:
		return configErrorf("strategy must be one of: naive, naive-aggregate, interactive, interactive-aggr")
	}
	switch c.NameResolver {
	case "original", "java", "snake":
	default:
		return configErrorf("name_resolver must be one of: original, java, snake")
	}
	switch c.OnGraphExists {
	case "error", "recreate", "merge":
	default:
		return configErrorf("on_graph_exists must be one of: error, recreate, merge")
	}

	if len(c.IncludeTables) > 0 && len(c.ExcludeTables) > 0 {
		return configErrorf("include_tables and exclude_tables are mutually exclusive")
	}
	c.Mapping = strings.TrimSpace(c.Mapping)
	if c.requiresMapping() && c.Mapping == "" {
		return configErrorf("strategy %q requires a mapping document (mapping = \"...\")", c.Strategy)
	}

	// Source validation
	if c.Source.Type == "" {
		return configErrorf("source.type is required (must be mysql, sqlite or postgres)")
	}
	src, err := newSourceDB(c.Source.Type)
	if err != nil {
		return configErrorf("%v", err)
	}
	if c.Source.DSN == "" {
		return configErrorf("source.dsn is required")
	}
	if c.Source.Charset == "" {
		c.Source.Charset = "utf8mb4"
	} else if c.Source.Type != "mysql" {
		return configErrorf("source.charset is a MySQL-only option")
	}
	if c.Source.Schema == "" {
		c.Source.Schema = "public"
	} else if c.Source.Type != "postgres" {
		return configErrorf("source.schema is a PostgreSQL-only option")
	}
	if err := src.ValidateTypeMapping(c.TypeMapping); err != nil {
		return configErrorf("%v", err)
	}

	// Cap workers based on source limits
	if max := src.MaxWorkers(); max > 0 && c.Workers > max {
		c.Workers = max
	}

	// Target validation
	switch c.Target.Type {
	case "neo4j":
		if c.Target.Schema != "" {
			return configErrorf("target.schema is a PostgreSQL-only option")
		}
	case "postgres":
		c.Target.Schema = strings.TrimSpace(c.Target.Schema)
		if c.Target.Schema == "" {
			c.Target.Schema = "graph"
		}
		if c.Target.Username != "" || c.Target.Password != "" || c.Target.Database != "" {
			return configErrorf("target.username, target.password and target.database are Neo4j-only options; put PostgreSQL credentials in target.dsn")
		}
	case "memory":
		if len(c.Hooks.BeforeImport) > 0 || len(c.Hooks.AfterImport) > 0 {
			return configErrorf("hooks are not supported for the memory target")
		}
	case "":
		return configErrorf("target.type is required (must be neo4j, postgres or memory)")
	default:
		return configErrorf("unsupported target type %q (must be neo4j, postgres or memory)", c.Target.Type)
	}
	if c.Target.Type != "memory" && c.Target.DSN == "" {
		return configErrorf("target.dsn is required")
	}

	return nil
}

// aggregates reports whether the strategy collapses join tables into edges.
func (c *MigrationConfig) aggregates() bool {
	return c.Strategy == strategyNaiveAggregate || c.Strategy == strategyInteractiveAggr
}

func (c *MigrationConfig) requiresMapping() bool {
	return c.Strategy == strategyInteractive || c.Strategy == strategyInteractiveAggr
}

// resolvePath resolves a path relative to the config file directory.
func (c *MigrationConfig) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// loadEnvFile loads KEY=value pairs into the process environment. Variables
// already set in the environment win over the file.
func loadEnvFile(configDir, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	path := filepath.Join(configDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvRefs replaces ${NAME} references. Bare $NAME is left alone so
// passwords containing '$' survive.
func expandEnvRefs(s string) (string, error) {
	var missing []string
	out := envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRefPattern.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return ref
		}
		return v
	})
	if len(missing) > 0 {
		return "", configErrorf("environment variable(s) not set: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

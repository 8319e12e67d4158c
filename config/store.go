package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// StoreKind selects the persisted key-value backend.
type StoreKind string

const (
	// StoreKindFile keeps the record in a JSON document on disk.
	StoreKindFile StoreKind = "file"
	// StoreKindRedis keeps the record in Redis.
	StoreKindRedis StoreKind = "redis"
	// StoreKindSQLite keeps the record in a local SQLite database.
	StoreKindSQLite StoreKind = "sqlite"
	// StoreKindPostgres keeps the record in PostgreSQL.
	StoreKindPostgres StoreKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreKind.
func (k *StoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch StoreKind(v) {
	case StoreKindFile, StoreKindRedis, StoreKindSQLite, StoreKindPostgres:
		*k = StoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreKind: %q (valid options: file, redis, sqlite, postgres)", v)
	}
}

// StoreConfig selects and configures the persisted store.
type StoreConfig struct {
	Kind StoreKind `env:"KIND" envDefault:"file"`

	// FilePath is the JSON document used by the file store.
	FilePath string `env:"FILE_PATH"`
	// Watch reloads preferences when another process edits the file.
	Watch bool `env:"WATCH" envDefault:"true"`

	// SQLitePath is the database file used by the sqlite store.
	SQLitePath string `env:"SQLITE_PATH"`

	// RedisPrefix namespaces keys in Redis.
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"breedify:"`
}

// Sanitize fills in default paths under the user config directory.
func (s *StoreConfig) Sanitize() {
	if s.Kind == "" {
		s.Kind = StoreKindFile
	}
	if strings.TrimSpace(s.FilePath) == "" {
		s.FilePath = filepath.Join(defaultStateDir(), "session.json")
	}
	if strings.TrimSpace(s.SQLitePath) == "" {
		s.SQLitePath = filepath.Join(defaultStateDir(), "session.db")
	}
	if s.RedisPrefix == "" {
		s.RedisPrefix = "breedify:"
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "breedify")
	}
	return ".breedify"
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"      envDefault:"localhost"`
	Port     int    `env:"PORT"      envDefault:"5432"`
	User     string `env:"USER"      envDefault:"breedify"`
	Password string `env:"PASSWORD"  envDefault:"breedify"`
	Name     string `env:"NAME"      envDefault:"breedify"`
	SSLMode  string `env:"SSL_MODE"  envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	MaxConns int32  `env:"MAX_CONNS" envDefault:"4"`
}

// DSN builds a postgres URL, escaping credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

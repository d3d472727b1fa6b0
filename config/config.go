package config

import (
	"strings"
	"time"

	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Structs

// Config holds all information parsed from
// supplied config file.
type Config struct {
	IMAP    IMAP
	Server  Server
	Auth    Auth
	Storage Storage
}

// IMAP is the IMAP server related part
// of the TOML config file.
type IMAP struct {
	Greeting           string
	HierarchySeparator string
	MaxFaultyResponses int
	LoginTimeout       Duration
	Timeout            Duration
	IdleInterval       Duration
	MaxLiteralSize     int
	NoDaemonize        bool
}

// Server describes where clients and the metrics
// scraper reach the server.
type Server struct {
	ListenAddr     string
	PublicCertLoc  string
	PublicKeyLoc   string
	PrometheusAddr string
}

// Auth selects and configures the authenticator.
// Adapter is one of "AuthFile" and "AuthPostgres".
type Auth struct {
	Adapter  string
	File     *AuthFile
	Postgres *AuthPostgres
}

// AuthFile provides information on authenticating
// user taken from a designated authorization text file.
type AuthFile struct {
	File      string
	Separator string
}

// AuthPostgres defines parameters for connecting
// to a Postgres database for authenticating users.
type AuthPostgres struct {
	IP       string
	Port     uint16
	Database string
	User     string
	Password string
	UseTLS   bool
}

// Storage configures where mail lives and which backend
// is checked for liveness before every command.
// Adapter is one of "maildir", "postgres", "sqlite"
// and "grpc".
type Storage struct {
	Adapter         string
	MaildirRoot     string
	SQLitePath      string
	GRPCAddr        string
	GRPCUseTLS      bool
	GRPCRootCertLoc string
	Postgres        *StoragePostgres
}

// StoragePostgres holds the connection parameters of
// the PostgreSQL storage backend.
type StoragePostgres struct {
	IP       string
	Port     uint16
	Database string
	User     string
	Password string
	SSLMode  string
}

// Duration is a time.Duration written as "90s" or
// "5m" in the config file.
type Duration struct {
	time.Duration
}

// Functions

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {

	var err error

	d.Duration, err = time.ParseDuration(string(text))

	return err
}

// LoadConfig takes in the path to the main config
// file in TOML syntax and places the values from the
// file in the corresponding struct. Relative paths are
// taken relative to the directory of the config file.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	// Parse values from TOML file into struct.
	if _, err := toml.DecodeFile(configFile, conf); err != nil {
		return nil, errors.Wrapf(err, "failed to read in TOML config file at '%s'", configFile)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	base, err := filepath.Abs(filepath.Dir(configFile))
	if err != nil {
		return nil, errors.Wrap(err, "could not get absolute path of config directory")
	}

	abs := func(path *string) {

		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(base, *path)
		}
	}

	abs(&conf.Server.PublicCertLoc)
	abs(&conf.Server.PublicKeyLoc)
	abs(&conf.Storage.MaildirRoot)
	abs(&conf.Storage.SQLitePath)
	abs(&conf.Storage.GRPCRootCertLoc)

	if conf.Auth.File != nil {
		abs(&conf.Auth.File.File)
	}

	return conf, nil
}

// validate checks that the selected adapters come with
// their configuration.
func (c *Config) validate() error {

	if c.Server.ListenAddr == "" {
		return errors.Errorf("missing Server.ListenAddr in config")
	}

	if c.IMAP.HierarchySeparator == "" {
		c.IMAP.HierarchySeparator = "/"
	}

	switch c.Auth.Adapter {

	case "AuthFile":
		if c.Auth.File == nil {
			return errors.Errorf("auth adapter AuthFile requires an [Auth.File] section")
		}

		if c.Auth.File.Separator == "" {
			c.Auth.File.Separator = ":"
		}

	case "AuthPostgres":
		if c.Auth.Postgres == nil {
			return errors.Errorf("auth adapter AuthPostgres requires an [Auth.Postgres] section")
		}

	default:
		return errors.Errorf("unknown auth adapter '%s'", c.Auth.Adapter)
	}

	if c.Storage.MaildirRoot == "" {
		return errors.Errorf("missing Storage.MaildirRoot in config")
	}

	switch strings.ToLower(c.Storage.Adapter) {

	case "", "maildir":
		c.Storage.Adapter = "maildir"

	case "postgres":
		if c.Storage.Postgres == nil {
			return errors.Errorf("storage adapter postgres requires a [Storage.Postgres] section")
		}

	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return errors.Errorf("storage adapter sqlite requires Storage.SQLitePath")
		}

	case "grpc":
		if c.Storage.GRPCAddr == "" {
			return errors.Errorf("storage adapter grpc requires Storage.GRPCAddr")
		}

	default:
		return errors.Errorf("unknown storage adapter '%s'", c.Storage.Adapter)
	}

	c.Storage.Adapter = strings.ToLower(c.Storage.Adapter)

	return nil
}

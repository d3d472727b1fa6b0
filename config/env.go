package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Structs

// Env holds information specific to the
// system where the server is deployed. This
// enables host adaptions without needing
// to maintain two different config files.
// Use the .env file to populate secrets
// within the system.
type Env struct {
	AuthPassword    string
	StoragePassword string
}

// Functions

// LoadEnv reads the supplied .env file, if it exists,
// into the process environment and picks up all
// secrets from there.
func LoadEnv(file string) (*Env, error) {

	if err := godotenv.Load(file); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "failed to read in %s file", file)
	}

	return &Env{
		AuthPassword:    os.Getenv("PLUTO_AUTH_PASSWORD"),
		StoragePassword: os.Getenv("PLUTO_STORAGE_PASSWORD"),
	}, nil
}

// Apply overrides passwords in conf with the secrets
// set in env.
func (env *Env) Apply(conf *Config) {

	if env.AuthPassword != "" && conf.Auth.Postgres != nil {
		conf.Auth.Postgres.Password = env.AuthPassword
	}

	if env.StoragePassword != "" && conf.Storage.Postgres != nil {
		conf.Storage.Postgres.Password = env.StoragePassword
	}
}

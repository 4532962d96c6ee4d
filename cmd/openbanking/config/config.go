// Package config resolves the configuration of the openbanking command from
// config.json5, a .env file and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"openbankingbr/internal/batch"
	"openbankingbr/internal/cache"
	"openbankingbr/internal/openbanking"
	"openbankingbr/lib/configutil"
	configlibsql "openbankingbr/lib/configutil/libsql"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const FileName = "config.json5"

const (
	EnvDataDir      = "OPENBANKING_DATA_DIR"
	EnvCacheDir     = "OPENBANKING_CACHE_DIR"
	EnvCacheBackend = "OPENBANKING_CACHE_BACKEND"
	EnvIgnoreErrors = "OPENBANKING_IGNORE_ERRORS"
	EnvSnapshot     = "OPENBANKING_SNAPSHOT"
)

type CacheConfig struct {
	// Backend is one of dir, badger or none.
	Backend string `json:"backend"`
	Dir     string `json:"dir"`
}

type CSVConfig struct {
	Delimiter string `json:"delimiter"`
	// Encoding is utf8 or cp1252.
	Encoding string `json:"encoding"`
}

type HTTPConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	// RateLimit is the max amount of requests per second, a negative value disables it.
	RateLimit          float64 `json:"rate_limit"`
	InsecureSkipVerify bool    `json:"insecure_skip_verify"`
	CloudflareBypass   bool    `json:"cloudflare_bypass"`
}

type ScheduleConfig struct {
	Cron string `json:"cron"`
}

type Config struct {
	DirectoryURL string              `json:"directory_url"`
	DataDir      string              `json:"data_dir"`
	Cache        CacheConfig         `json:"cache"`
	CSV          CSVConfig           `json:"csv"`
	IgnoreErrors bool                `json:"ignore_errors"`
	HTTP         HTTPConfig          `json:"http"`
	Snapshot     configlibsql.Struct `json:"snapshot"`
	Schedule     ScheduleConfig      `json:"schedule"`
}

func Default() Config {
	return Config{
		DirectoryURL: openbanking.DefaultDirectoryURL,
		DataDir:      "data",
		Cache: CacheConfig{
			Backend: cache.BackendDir,
			Dir:     "cache",
		},
		CSV: CSVConfig{
			Delimiter: ",",
			Encoding:  string(batch.EncodingUTF8),
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 60,
			RateLimit:      2,
		},
		Schedule: ScheduleConfig{
			// every day at 6 in the morning, after the participants refresh their data
			Cron: "0 6 * * *",
		},
	}
}

// Load reads `path`, or config.json5 searched from the working directory up
// when `path` is empty. A missing file is not an error, the defaults are used.
func Load(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var file Config
	if path != "" {
		file, err = configutil.ReadConfig[Config](path)
	} else {
		file, err = configutil.ReadRecursively[Config](FileName)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	if errors.Is(err, fs.ErrNotExist) && path != "" {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	config, err := configutil.WithDefaults(Default(), file)
	if err != nil {
		return Config{}, err
	}
	err = config.applyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if value, ok := lookup(EnvDataDir); ok && value != "" {
		c.DataDir = value
	}
	if value, ok := lookup(EnvCacheDir); ok && value != "" {
		c.Cache.Dir = value
	}
	if value, ok := lookup(EnvCacheBackend); ok && value != "" {
		c.Cache.Backend = value
	}
	if value, ok := lookup(EnvSnapshot); ok && value != "" {
		c.Snapshot.Target = value
	}
	if value, ok := lookup(EnvIgnoreErrors); ok && value != "" {
		ignore, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIgnoreErrors, err)
		}
		c.IgnoreErrors = ignore
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendDir, cache.BackendBadger, cache.BackendNone:
	default:
		return fmt.Errorf("unknown cache backend '%s', expected dir, badger or none", c.Cache.Backend)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive")
	}
	_, err := c.Format()
	return err
}

// Format returns the csv format the batch writes files in.
func (c Config) Format() (batch.Format, error) {
	delimiter, err := batch.ParseDelimiter(c.CSV.Delimiter)
	if err != nil {
		return batch.Format{}, err
	}
	encoding, err := batch.ParseEncoding(c.CSV.Encoding)
	if err != nil {
		return batch.Format{}, err
	}
	return batch.Format{Delimiter: delimiter, Encoding: encoding}, nil
}

// ClientOptions returns the options of the openbanking client.
func (c Config) ClientOptions() openbanking.Options {
	opts := openbanking.DefaultOptions()
	opts.DirectoryURL = c.DirectoryURL
	opts.Timeout = time.Duration(c.HTTP.TimeoutSeconds) * time.Second
	opts.RateLimit = c.HTTP.RateLimit
	opts.InsecureSkipVerify = c.HTTP.InsecureSkipVerify
	opts.CloudflareBypass = c.HTTP.CloudflareBypass
	return opts
}

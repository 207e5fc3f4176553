package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const envPrefix = "APPSCOUT_"

// Load builds a Config from defaults, an optional YAML file and APPSCOUT_* overrides.
// An empty path or a missing file keeps the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files, ignoring missing ones.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := EnvString("PLAY_BASE_URL"); ok {
		cfg.Catalog.PlayBaseURL = v
	}
	if v, ok := EnvString("APPSTORE_BASE_URL"); ok {
		cfg.Catalog.AppStoreBaseURL = v
	}
	if v, ok := EnvString("COUNTRY"); ok {
		cfg.Catalog.Country = v
	}
	if v, ok, err := EnvInt("START_RANK"); err != nil {
		return err
	} else if ok {
		cfg.Harvest.StartRank = v
	}
	if v, ok, err := EnvInt("END_RANK"); err != nil {
		return err
	} else if ok {
		cfg.Harvest.EndRank = v
	}
	if v, ok, err := EnvInt("CHUNK_SIZE"); err != nil {
		return err
	} else if ok {
		cfg.Harvest.ChunkSize = v
	}
	if v, ok, err := EnvDuration("CHUNK_DELAY"); err != nil {
		return err
	} else if ok {
		cfg.Harvest.ChunkDelay = v
	}
	if v, ok, err := EnvDuration("ROW_DELAY"); err != nil {
		return err
	} else if ok {
		cfg.Verify.RowDelay = v
	}
	if v, ok := EnvString("CHECKPOINT_BACKEND"); ok {
		cfg.Checkpoint.Backend = v
	}
	if v, ok := EnvString("CHECKPOINT_PATH"); ok {
		cfg.Checkpoint.Path = v
	}
	if v, ok := EnvString("REDIS_URL"); ok {
		cfg.Checkpoint.RedisURL = v
	}
	if v, ok := EnvString("MONGO_URI"); ok {
		cfg.Output.MongoURI = v
	}
	if v, ok := EnvString("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := EnvString("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	return nil
}

// EnvString returns the trimmed value of APPSCOUT_<name> when set and non-empty.
func EnvString(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// EnvInt parses APPSCOUT_<name> as an integer.
func EnvInt(name string) (int, bool, error) {
	v, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	return n, true, nil
}

// EnvDuration parses APPSCOUT_<name> with time.ParseDuration.
func EnvDuration(name string) (time.Duration, bool, error) {
	v, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	return d, true, nil
}

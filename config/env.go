package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/adsgraph/adsgraph/apierr"
)

const (
	dotEnvFile = ".env"
	// how many parent directories findDotEnv climbs from the working dir
	dotEnvMaxDepth = 6
)

// LoadDotEnv loads provider settings (FACEBOOK_GRAPH_BASE_URL and friends)
// into the process environment and returns the file it used. Without paths
// it looks for a .env in the working directory and its parents. Variables
// already set in the process win. A missing file is reported as
// os.ErrNotExist.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			return "", err
		}
		return paths[0], nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	p, ok := findDotEnv(wd)
	if !ok {
		return "", os.ErrNotExist
	}
	return p, godotenv.Load(p)
}

func findDotEnv(dir string) (string, bool) {
	for range dotEnvMaxDepth + 1 {
		p := filepath.Join(dir, dotEnvFile)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

// InitFromEnv loads a .env file and then calls Init, so a gateway base path
// kept in .env takes effect. Without paths a missing .env is fine; an
// explicit path that cannot be read is a *apierr.ConfigError.
func InitFromEnv(p Params, paths ...string) (*Configuration, error) {
	if _, err := LoadDotEnv(paths...); err != nil {
		if len(paths) > 0 || !errors.Is(err, os.ErrNotExist) {
			return nil, &apierr.ConfigError{Field: "dotenv", Reason: "cannot load", Err: err}
		}
	}
	return Init(p)
}

// GetEnv returns the trimmed value of key, or def when it is unset or blank.
// Resolve reads the environment through it by default.
func GetEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func processEnv(key string) string {
	return GetEnv(key, "")
}

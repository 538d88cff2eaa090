package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	dotenvOnce sync.Once
	dotenvPath string
	dotenvErr  error
)

// LoadDotEnv loads the nearest .env file, searching from the working
// directory up to the root. Variables already set win. Only the first
// call does anything, and nothing is loaded under go test.
func LoadDotEnv() error {
	if runningUnderGoTest() {
		return nil
	}
	dotenvOnce.Do(func() {
		path, err := findDotEnv()
		if err != nil {
			dotenvErr = err
			log.Debug().Err(err).Msg("search .env failed")
			return
		}
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil {
			dotenvErr = errors.Wrapf(err, "load %s", path)
			log.Warn().Err(err).Str("dotenv", path).Msg("load .env failed")
			return
		}
		dotenvPath = path
		log.Debug().Str("dotenv", path).Msg("loaded .env")
	})
	return dotenvErr
}

// DotEnvPath returns the loaded .env file, or "" when none was loaded
func DotEnvPath() string {
	return dotenvPath
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return searchUp(wd, ".env")
}

func searchUp(dir, name string) (string, error) {
	for {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

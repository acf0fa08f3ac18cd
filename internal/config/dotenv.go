package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ReadDotEnv reads the given .env files without touching the process env.
// Missing files are skipped. A key in an earlier file wins over a later one.
func ReadDotEnv(paths ...string) map[string]string {
	out := map[string]string{}
	for _, p := range paths {
		vals, err := godotenv.Read(p)
		if err != nil {
			continue
		}
		for k, v := range vals {
			if _, set := out[k]; !set {
				out[k] = v
			}
		}
	}
	return out
}

// ApplyUnset exports vals for every key the process env does not set yet.
func ApplyUnset(vals map[string]string) {
	for k, v := range vals {
		if _, set := os.LookupEnv(k); !set {
			os.Setenv(k, v)
		}
	}
}

// LoadSecretFiles exports every regular file in dir as an env var named after
// the upper-cased file name (openai_api_key -> OPENAI_API_KEY). Variables that
// are already set are left alone. A missing directory is not an error.
func LoadSecretFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(e.Name(), "-", "_"))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		os.Setenv(key, strings.TrimSpace(string(raw)))
	}
	return nil
}

// bootstrapSecretsDir resolves SECRETS_DIR before the struct is parsed. The
// process env wins over the .env files.
func bootstrapSecretsDir(dotenv map[string]string) string {
	if v, ok := os.LookupEnv("SECRETS_DIR"); ok {
		return v
	}
	if v, ok := dotenv["SECRETS_DIR"]; ok {
		return v
	}
	return "/run/secrets"
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

// Config carries every knob the service reads at startup. Values resolve in
// order: built-in default, then the optional YAML overlay file, then the
// environment. Secrets additionally fall back to files under SecretsDir when
// the environment leaves them empty.
type Config struct {
	Mode    string `yaml:"mode"`
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	Verbose bool   `yaml:"verbose"`

	ProcessLimit          int `yaml:"process_limit"`
	AutoCompleteMinLength int `yaml:"auto_complete_min_length"`

	DocDriver    string `yaml:"doc_driver"`
	GraphDriver  string `yaml:"graph_driver"`
	CacheDriver  string `yaml:"cache_driver"`
	VectorDriver string `yaml:"vector_driver"`

	TrudAPIKey      string `yaml:"nhs_trud_api_key"`
	BioPortalAPIKey string `yaml:"bioportal_api_key"`
	UMLSAPIKey      string `yaml:"nih_umls_api_key"`

	AdminJWTSecret   string `yaml:"admin_jwt_secret"`
	APIKeyHMACSecret string `yaml:"api_key_hmac_secret"`

	MirrorBucket string `yaml:"mirror_bucket"`

	SecretsDir string `yaml:"-"`
}

const (
	DocDriverMongo      = "mongo"
	DocDriverRelational = "relational"

	GraphDriverNeo4j  = "neo4j"
	GraphDriverMemory = "memory"

	CacheDriverRedis = "redis"
	CacheDriverNone  = "none"

	VectorDriverQdrant = "qdrant"
	VectorDriverNone   = "none"
)

func defaults() Config {
	return Config{
		Mode:                  "development",
		Port:                  "8080",
		DataDir:               "data",
		ProcessLimit:          4,
		AutoCompleteMinLength: 3,
		DocDriver:             DocDriverMongo,
		GraphDriver:           GraphDriverNeo4j,
		CacheDriver:           CacheDriverRedis,
		VectorDriver:          VectorDriverNone,
	}
}

// Load assembles the Config. The overlay file named by BTS_CONFIG_FILE is
// optional; a missing file is only an error when the variable names one
// explicitly.
func Load(log *logger.Logger) (Config, error) {
	cfg := defaults()

	overlayPath := strings.TrimSpace(os.Getenv("BTS_CONFIG_FILE"))
	if overlayPath != "" {
		raw, err := os.ReadFile(overlayPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", overlayPath, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", overlayPath, err)
		}
		if log != nil {
			log.Info("Config overlay applied", "file", overlayPath)
		}
	}

	cfg.Mode = envutil.String("BTS_MODE", cfg.Mode)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.DataDir = envutil.String("BTS_DATA_DIR", cfg.DataDir)
	cfg.Verbose = envutil.Bool("BTS_VERBOSE", cfg.Verbose)

	cfg.ProcessLimit = envutil.Int("BTS_PROCESS_LIMIT", cfg.ProcessLimit)
	cfg.AutoCompleteMinLength = envutil.Int("BTS_AUTO_COMPLETE_MIN_LENGTH", cfg.AutoCompleteMinLength)

	cfg.DocDriver = envutil.String("BTS_DOC_DRIVER", cfg.DocDriver)
	cfg.GraphDriver = envutil.String("BTS_GRAPH_DRIVER", cfg.GraphDriver)
	cfg.CacheDriver = envutil.String("BTS_CACHE_DRIVER", cfg.CacheDriver)
	cfg.VectorDriver = envutil.String("BTS_VECTOR_DRIVER", cfg.VectorDriver)

	cfg.TrudAPIKey = envutil.String("BTS_NHS_TRUD_API_KEY", cfg.TrudAPIKey)
	cfg.BioPortalAPIKey = envutil.String("BTS_BIOPORTAL_API_KEY", cfg.BioPortalAPIKey)
	cfg.UMLSAPIKey = envutil.String("BTS_NIH_UMLS_API_KEY", cfg.UMLSAPIKey)

	cfg.AdminJWTSecret = envutil.String("BTS_ADMIN_JWT_SECRET", cfg.AdminJWTSecret)
	cfg.APIKeyHMACSecret = envutil.String("BTS_API_KEY_HMAC_SECRET", cfg.APIKeyHMACSecret)

	cfg.MirrorBucket = envutil.String("BTS_MIRROR_BUCKET", cfg.MirrorBucket)

	cfg.SecretsDir = envutil.String("BTS_SECRETS_DIR", "")
	if cfg.SecretsDir != "" {
		applySecretFiles(&cfg)
	}

	if cfg.ProcessLimit < 1 {
		cfg.ProcessLimit = 1
	}
	if cfg.AutoCompleteMinLength < 1 {
		cfg.AutoCompleteMinLength = 1
	}

	return cfg, nil
}

// applySecretFiles fills still-empty secret fields from <SecretsDir>/<name>.
func applySecretFiles(cfg *Config) {
	slots := []struct {
		name string
		dst  *string
	}{
		{"nhs_trud_api_key", &cfg.TrudAPIKey},
		{"bioportal_api_key", &cfg.BioPortalAPIKey},
		{"nih_umls_api_key", &cfg.UMLSAPIKey},
		{"admin_jwt_secret", &cfg.AdminJWTSecret},
		{"api_key_hmac_secret", &cfg.APIKeyHMACSecret},
	}
	for _, slot := range slots {
		if strings.TrimSpace(*slot.dst) != "" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(cfg.SecretsDir, slot.name))
		if err != nil {
			continue
		}
		*slot.dst = strings.TrimSpace(string(raw))
	}
}

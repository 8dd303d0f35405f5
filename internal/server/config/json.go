package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/eternalsentinel/sentinel/internal/flagx"
	"github.com/eternalsentinel/sentinel/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON config
// files. Duration fields accept "1h30m"-style strings via timex.Duration;
// after unmarshalling, values are copied into the runtime Config, which
// uses plain time.Duration.
type JsonConfig struct {
	HTTPAddr                   string         `json:"http_addr"`
	DatabaseDSN                string         `json:"database_dsn"`
	JWTSecret                  string         `json:"jwt_secret"`
	AdminTokenValidityDuration timex.Duration `json:"admin_token_validity_duration"`
	SchedulerInterval          timex.Duration `json:"scheduler_interval"`
	WorkerConcurrency          int            `json:"worker_concurrency"`
	PublicBaseURL              string         `json:"public_base_url"`
	S3RootUser                 string         `json:"s3_root_user"`
	S3RootPassword             string         `json:"s3_root_password"`
	S3Bucket                   string         `json:"s3_bucket"`
	S3Region                   string         `json:"s3_region"`
	S3BaseEndpoint             string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flags; if neither is set, no file is loaded and config is left unchanged.
// A present-but-unreadable or malformed file panics: a config path that was
// explicitly requested but can't be honored should not be silently ignored.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.HTTPAddr = c.HTTPAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.JWTSecret = c.JWTSecret
	config.AdminTokenValidityDuration = time.Duration(c.AdminTokenValidityDuration.Duration)
	config.SchedulerInterval = time.Duration(c.SchedulerInterval.Duration)
	config.WorkerConcurrency = c.WorkerConcurrency
	config.PublicBaseURL = c.PublicBaseURL
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}

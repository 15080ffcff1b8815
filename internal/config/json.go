package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gaiasync/internal/flagx"
	"github.com/dmitrijs2005/gaiasync/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its non-zero fields are copied
// into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN   string         `json:"database_dsn"`
	TAPEndpoint   string         `json:"tap_endpoint"`
	Username      string         `json:"username"`
	Password      string         `json:"password"`
	CatalogueFile string         `json:"catalogue_file"`
	Regions       []string       `json:"regions"`
	PartitionSize *int           `json:"partition_size"`
	ExtraSize     *float64       `json:"extra_size"`
	Workers       *int           `json:"workers"`
	RetryAttempts *int           `json:"retry_attempts"`
	RemoveJobs    *bool          `json:"remove_jobs"`
	HTTPTimeout   timex.Duration `json:"http_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. Fields absent from the file keep
// their current values. If the file cannot be read or contains invalid
// JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.TAPEndpoint != "" {
		config.TAPEndpoint = c.TAPEndpoint
	}
	if c.Username != "" {
		config.Username = c.Username
	}
	if c.Password != "" {
		config.Password = c.Password
	}
	if c.CatalogueFile != "" {
		config.CatalogueFile = c.CatalogueFile
	}
	if len(c.Regions) > 0 {
		config.Regions = c.Regions
	}
	if c.PartitionSize != nil {
		config.PartitionSize = *c.PartitionSize
	}
	if c.ExtraSize != nil {
		config.ExtraSize = *c.ExtraSize
	}
	if c.Workers != nil {
		config.Workers = *c.Workers
	}
	if c.RetryAttempts != nil {
		config.RetryAttempts = *c.RetryAttempts
	}
	if c.RemoveJobs != nil {
		config.RemoveJobs = *c.RemoveJobs
	}
	if c.HTTPTimeout.Duration != 0 {
		config.HTTPTimeout = time.Duration(c.HTTPTimeout.Duration)
	}
}

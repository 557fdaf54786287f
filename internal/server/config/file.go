package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/audiokeeper/internal/timex"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. The same struct is
// decoded from JSON, YAML or TOML; durations accept "30m" style strings.
// Only fields present in the file override the current values.
type FileConfig struct {
	HTTPAddr                    string         `json:"http_addr" yaml:"http_addr" toml:"http_addr"`
	GRPCAddr                    string         `json:"grpc_addr" yaml:"grpc_addr" toml:"grpc_addr"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn" toml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration" toml:"access_token_validity_duration"`
	ProjectRoot                 string         `json:"project_root" yaml:"project_root" toml:"project_root"`
	PublicRootName              string         `json:"public_root_name" yaml:"public_root_name" toml:"public_root_name"`
	TTSServiceURL               string         `json:"tts_service_url" yaml:"tts_service_url" toml:"tts_service_url"`
	TTSTimeout                  timex.Duration `json:"tts_timeout" yaml:"tts_timeout" toml:"tts_timeout"`
	VoiceDir                    string         `json:"voice_dir" yaml:"voice_dir" toml:"voice_dir"`
	BootstrapAdmin              string         `json:"bootstrap_admin" yaml:"bootstrap_admin" toml:"bootstrap_admin"`
	LogLevel                    string         `json:"log_level" yaml:"log_level" toml:"log_level"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password" toml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket" toml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region" toml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint" toml:"s3_base_endpoint"`
}

// parseFile loads path into config. The decoder is chosen by extension:
// .json, .yaml/.yml or .toml.
func parseFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := &FileConfig{}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	case ".toml":
		err = toml.Unmarshal(data, fc)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCAddr, fc.GRPCAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.ProjectRoot, fc.ProjectRoot)
	setString(&c.PublicRootName, fc.PublicRootName)
	setString(&c.TTSServiceURL, fc.TTSServiceURL)
	setString(&c.VoiceDir, fc.VoiceDir)
	setString(&c.BootstrapAdmin, fc.BootstrapAdmin)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)

	if fc.AccessTokenValidityDuration.Duration != 0 {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.TTSTimeout.Duration != 0 {
		c.TTSTimeout = fc.TTSTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

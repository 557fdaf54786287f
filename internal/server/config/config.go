// Package config handles configuration for the server component,
// including defaults, a config file overlay, and command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/audiokeeper/internal/flagx"
)

// Config holds runtime settings for the audiokeeper server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses for the REST API and gRPC health endpoint.
//   - DatabaseDSN: PostgreSQL URL (pgx) or SQLite file name (modernc).
//   - SecretKey: HMAC secret for signing JWTs (HS256). Empty means a random
//     secret is generated at startup.
//   - AccessTokenValidityDuration: lifetime of login tokens.
//   - ProjectRoot: directory that anchors every relative artifact path.
//   - PublicRootName: name of the public output directory under ProjectRoot.
//   - TTSServiceURL / TTSTimeout: synthesis backend.
//   - VoiceDir: directory holding emotion reference voices.
//   - BootstrapAdmin: username that receives the admin role at registration.
//   - S3*: optional object storage mirror; disabled when S3Bucket is empty.
type Config struct {
	HTTPAddr                    string
	GRPCAddr                    string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	ProjectRoot                 string
	PublicRootName              string
	TTSServiceURL               string
	TTSTimeout                  time.Duration
	VoiceDir                    string
	BootstrapAdmin              string
	LogLevel                    string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.GRPCAddr = ":50051"
	c.DatabaseDSN = "audiokeeper.db"
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.ProjectRoot = "."
	c.PublicRootName = "output"
	c.TTSServiceURL = "http://localhost:7860"
	c.TTSTimeout = 5 * time.Minute
	c.VoiceDir = ""
	c.BootstrapAdmin = "admin"
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file (-c/-config) and finally from command-line
// flags. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) finalize() error {
	root, err := filepath.Abs(c.ProjectRoot)
	if err != nil {
		return fmt.Errorf("project root: %w", err)
	}
	c.ProjectRoot = root

	if c.PublicRootName == "" {
		c.PublicRootName = "output"
	}
	if c.VoiceDir == "" {
		c.VoiceDir = filepath.Join(root, "voice")
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration)
	}
	return nil
}

// OutputRoot is the public directory served under /<PublicRootName>/.
func (c *Config) OutputRoot() string {
	return filepath.Join(c.ProjectRoot, c.PublicRootName)
}

// TempRoot holds unsaved synthesis results.
func (c *Config) TempRoot() string {
	return filepath.Join(c.OutputRoot(), "temp")
}

// DataRoot holds saved artifacts.
func (c *Config) DataRoot() string {
	return filepath.Join(c.OutputRoot(), "data")
}

// Dirs lists the directories the server creates at startup.
func (c *Config) Dirs() []string {
	return []string{c.OutputRoot(), c.TempRoot(), c.DataRoot(), c.VoiceDir}
}

// Secret returns the configured signing key, or a freshly generated one
// when none is set. generated reports which case applied.
func (c *Config) Secret(gen func(int) []byte) (secret []byte, generated bool) {
	if c.SecretKey != "" {
		return []byte(c.SecretKey), false
	}
	return gen(32), true
}

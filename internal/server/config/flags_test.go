package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{name: "all flags", args: []string{
			"-a", "127.0.0.1:8080", "-g", "127.0.0.1:9090", "-d", "db", "-s", "secret",
			"-t", "45", "-r", "/srv/ak", "-u", "http://tts:7860", "-v", "/srv/voice",
			"-l", "debug", "-b", "bucket", "-e", "http://endpoint",
		},
			expected: &Config{
				HTTPAddr:                    "127.0.0.1:8080",
				GRPCAddr:                    "127.0.0.1:9090",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 45 * time.Minute,
				ProjectRoot:                 "/srv/ak",
				TTSServiceURL:               "http://tts:7860",
				VoiceDir:                    "/srv/voice",
				LogLevel:                    "debug",
				S3Bucket:                    "bucket",
				S3BaseEndpoint:              "http://endpoint",
			}},
		{name: "unknown flags are ignored", args: []string{"-x", "1", "-c", "cfg.json", "-d", "db"},
			expected: &Config{DatabaseDSN: "db"}},
		{name: "bad int", args: []string{"-t", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Ingest.BatchMaxItems)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load("testdata/dios.toml")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/dios/dios.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Ingest.BatchMaxItems)
	assert.Equal(t, "telegram", cfg.Ingest.DefaultSource)
	assert.Equal(t, "rules.cue", cfg.Rules.File)
	assert.Equal(t, "text", cfg.Output.Format, "unset keys keep defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "[database\npath = 1", "parsing config"},
		{"unknown key", "[ingest]\nmax = 3\n", `unknown key "ingest.max"`},
		{"batch size", "[ingest]\nbatch_max_items = 0\n", "batch_max_items must be positive"},
		{"format", "[output]\nformat = \"xml\"\n", "output.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dios.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

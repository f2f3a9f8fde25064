package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
Database:
  Host: db.internal
  Port: "5432"
  User: media
  Password: secret
  Name: media
Storage:
  Type: s3
  S3:
    Bucket: media-bucket
    AccessKeyID: key
    SecretAccessKey: secret
Media:
  MaxFileSize: 1024
  Types:
    - ID: 1
      Name: document
      Extensions: ["*"]
    - ID: 5
      Name: vector
      Extensions: [svg, eps]
Reclaim:
  Interval: 30m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "media-bucket", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Equal(t, int64(1024), cfg.Media.MaxFileSize)
	assert.Equal(t, 30*time.Minute, cfg.Reclaim.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Reclaim.GracePeriod)
	assert.Equal(t, "2525", cfg.Server.Port)

	require.Len(t, cfg.Media.Types, 2)
	assert.Equal(t, MediaTypeConfig{ID: 5, Name: "vector", Extensions: []string{"svg", "eps"}}, cfg.Media.Types[1])
}

func TestNewConfigEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_HOST", "override")
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := NewConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Database.Host)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestNewConfigDefaultTypes(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, `
Database:
  Host: localhost
  Port: "5432"
  User: media
  Password: secret
  Name: media
`))
	require.NoError(t, err)
	assert.Equal(t, DefaultMediaTypes(), cfg.Media.Types)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestNewConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"incomplete database", "Database:\n  Host: localhost\n"},
		{"unknown storage", `
Database:
  Host: localhost
  Port: "5432"
  User: media
  Password: secret
  Name: media
Storage:
  Type: ftp
`},
		{"type without extensions", `
Database:
  Host: localhost
  Port: "5432"
  User: media
  Password: secret
  Name: media
Media:
  Types:
    - ID: 6
      Name: empty
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", db.GetURL())
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", db.GetDSN())
}

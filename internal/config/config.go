package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Storage  StorageConfig  `mapstructure:"Storage"`
	Media    MediaConfig    `mapstructure:"Media"`
	Log      LogConfig      `mapstructure:"Log"`
	Reclaim  ReclaimConfig  `mapstructure:"Reclaim"`
}

type ServerConfig struct {
	Port      string `mapstructure:"Port"`
	UploadDir string `mapstructure:"UploadDir"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type StorageConfig struct {
	Type      string   `mapstructure:"Type"` // local, s3
	LocalPath string   `mapstructure:"LocalPath"`
	Segments  int      `mapstructure:"Segments"`
	S3        S3Config `mapstructure:"S3"`
}

type S3Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
}

type MediaConfig struct {
	MaxFileSize      int64             `mapstructure:"MaxFileSize"`
	BlockedMimeTypes []string          `mapstructure:"BlockedMimeTypes"`
	Types            []MediaTypeConfig `mapstructure:"Types"`
}

// MediaTypeConfig maps file extensions to a media type id. "*" matches every extension.
type MediaTypeConfig struct {
	ID         int64    `mapstructure:"ID"`
	Name       string   `mapstructure:"Name"`
	Extensions []string `mapstructure:"Extensions"`
}

type LogConfig struct {
	Level      string `mapstructure:"Level"`
	Format     string `mapstructure:"Format"`
	OutputPath string `mapstructure:"OutputPath"`
}

type ReclaimConfig struct {
	Interval    time.Duration `mapstructure:"Interval"`
	GracePeriod time.Duration `mapstructure:"GracePeriod"`
	BatchSize   int           `mapstructure:"BatchSize"`
}

// DefaultMediaTypes is used when the config file does not declare a type table.
// The ids match the rows seeded by the initial migration.
func DefaultMediaTypes() []MediaTypeConfig {
	return []MediaTypeConfig{
		{ID: 1, Name: "document", Extensions: []string{"*"}},
		{ID: 2, Name: "image", Extensions: []string{"jpg", "jpeg", "png", "gif", "svg", "webp", "tiff", "bmp"}},
		{ID: 3, Name: "video", Extensions: []string{"mp4", "mov", "avi", "webm", "mkv"}},
		{ID: 4, Name: "audio", Extensions: []string{"mp3", "wav", "ogg", "flac"}},
	}
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Storage.Type", "STORAGE_TYPE")
	v.BindEnv("Storage.LocalPath", "STORAGE_LOCAL_PATH")
	v.BindEnv("Storage.S3.AccessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("Storage.S3.SecretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("Storage.S3.Bucket", "S3_BUCKET")
	v.BindEnv("Storage.S3.Endpoint", "S3_ENDPOINT")
	v.BindEnv("Storage.S3.Region", "S3_REGION")
	v.BindEnv("Log.Level", "LOG_LEVEL")

	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.UploadDir", "/tmp/media-uploads")
	v.SetDefault("Storage.Type", "local")
	v.SetDefault("Storage.LocalPath", "/var/lib/media")
	v.SetDefault("Storage.Segments", 10)
	v.SetDefault("Storage.S3.Region", "us-east-1")
	v.SetDefault("Media.MaxFileSize", 16*1024*1024)
	v.SetDefault("Media.BlockedMimeTypes", []string{"application/x-msdownload", "application/x-sh"})
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Format", "json")
	v.SetDefault("Reclaim.Interval", time.Hour)
	v.SetDefault("Reclaim.GracePeriod", 15*time.Minute)
	v.SetDefault("Reclaim.BatchSize", 100)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Media.Types) == 0 {
		cfg.Media.Types = DefaultMediaTypes()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" ||
		c.Database.Port == "" ||
		c.Database.User == "" ||
		c.Database.Password == "" ||
		c.Database.Name == "" {
		return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
	}
	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Reclaim.Interval <= 0 {
		return fmt.Errorf("reclaim interval must be positive")
	}
	for _, t := range c.Media.Types {
		if t.ID <= 0 || len(t.Extensions) == 0 {
			return fmt.Errorf("media type %q needs an id and at least one extension", t.Name)
		}
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

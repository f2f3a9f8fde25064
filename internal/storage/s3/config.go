package s3

import "fmt"

type Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
}

func (c *Config) validate() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("AccessKeyID is required")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("SecretAccessKey is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("Bucket is required")
	}
	return nil
}

package transfer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SFTPConfig holds the connection settings for the remote drop directory.
// The password is deliberately absent; it comes from the environment.
type SFTPConfig struct {
	Addr string `yaml:"addr"`
	User string `yaml:"user"`
	Dir  string `yaml:"dir"`
}

// FileConfig is the on-disk endpoint configuration for a transfer run.
type FileConfig struct {
	SFTP   SFTPConfig `yaml:"sftp"`
	Source string     `yaml:"source"`
	Bucket string     `yaml:"bucket"`
}

// LoadFile parses and validates a yaml endpoint configuration.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.SFTP.Addr == "" {
		return nil, fmt.Errorf("%s: sftp.addr is required", path)
	}
	if cfg.SFTP.User == "" {
		return nil, fmt.Errorf("%s: sftp.user is required", path)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%s: bucket is required", path)
	}
	if cfg.SFTP.Dir == "" {
		cfg.SFTP.Dir = "."
	}
	if cfg.Source == "" {
		cfg.Source = "baltrad"
	}
	return &cfg, nil
}

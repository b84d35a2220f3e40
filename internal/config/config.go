package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/oxchat/torway/internal/logger"
	"github.com/oxchat/torway/internal/state"
)

// Config is the daemon configuration loaded from a YAML file.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Proxy   *ProxyConfig  `yaml:"proxy,omitempty"`
	Log     logger.Config `yaml:"log"`
}

// ServiceConfig configures the local SOCKS5 gateway and client storage.
type ServiceConfig struct {
	SOCKSPort      uint16 `yaml:"socks_port"`
	StateDir       string `yaml:"state_dir"`
	CacheDir       string `yaml:"cache_dir"`
	UseSystemProxy bool   `yaml:"use_system_proxy"`

	// Optional credentials required from local SOCKS5 clients.
	AuthUsername string `yaml:"auth_username"`
	AuthPassword string `yaml:"auth_password"`
}

// ProxyConfig describes an upstream proxy applied at startup. The same
// shape can be replaced at runtime through the service's SetProxy.
type ProxyConfig struct {
	Address  string  `yaml:"address"`
	Port     uint16  `yaml:"port"`
	Kind     string  `yaml:"kind"` // socks5 or http-connect
	Username *string `yaml:"username,omitempty"`
	Password *string `yaml:"password,omitempty"`
}

// ProxyInfo converts the configured upstream proxy into runtime state.
func (p *ProxyConfig) ProxyInfo() (*state.ProxyInfo, error) {
	var kind state.Kind
	switch p.Kind {
	case "socks5":
		kind = state.KindSOCKS5
	case "http-connect":
		kind = state.KindHTTPConnect
	default:
		return nil, fmt.Errorf("unknown proxy kind: %q", p.Kind)
	}

	return &state.ProxyInfo{
		Address:  p.Address,
		Port:     p.Port,
		Kind:     kind,
		Username: p.Username,
		Password: p.Password,
	}, nil
}

// Load reads and parses the configuration file at filename.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Proxy != nil {
		if _, err := cfg.Proxy.ProxyInfo(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

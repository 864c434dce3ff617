package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variables overriding the candidate hosts and debug port. Both
// are read once, when the configuration is loaded at process start.
const (
	hostsEnv = "REALM_DEBUG_HOSTS"
	portEnv  = "REALM_DEBUG_PORT"
)

// DefaultPort is the port debug servers listen on.
const DefaultPort = 8082

// DefaultHosts are the candidate hosts tried in order when none are
// configured. The third entry is the host machine as seen from an Android
// emulator.
var DefaultHosts = []string{"localhost", "127.0.0.1", "10.0.2.2"}

// AuthConfig carries optional debug-server credentials. A stored token is
// reused while it has not expired; otherwise the username and password are
// exchanged for a fresh one during bootstrap.
type AuthConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Token    string `toml:"token"`
}

// Config is the connection bootstrap configuration: an ordered list of
// candidate hosts and a single debug port.
type Config struct {
	Hosts []string    `toml:"hosts"`
	Port  int         `toml:"port"`
	Auth  *AuthConfig `toml:"auth"`
}

// DefaultConfig returns the configuration used when no file and no
// environment overrides are present.
func DefaultConfig() Config {
	hosts := make([]string, len(DefaultHosts))
	copy(hosts, DefaultHosts)
	return Config{
		Hosts: hosts,
		Port:  DefaultPort,
	}
}

// LoadConfig builds the bootstrap configuration from an optional TOML file
// and the environment. Environment values win over file values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		var raw Config
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load bootstrap config: %w", err)
		}
		if meta.IsDefined("hosts") {
			cfg.Hosts = normalizeHosts(raw.Hosts)
		}
		if meta.IsDefined("port") {
			cfg.Port = raw.Port
		}
		if meta.IsDefined("auth") {
			cfg.Auth = raw.Auth
		}
	}

	if hosts := os.Getenv(hostsEnv); hosts != "" {
		cfg.Hosts = normalizeHosts(strings.Split(hosts, ","))
	}
	if port := os.Getenv(portEnv); port != "" {
		p, err := strconv.Atoi(strings.TrimSpace(port))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", portEnv, err)
		}
		cfg.Port = p
	}

	if len(cfg.Hosts) == 0 {
		return Config{}, fmt.Errorf("bootstrap config has no candidate hosts")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("bootstrap config has invalid port %d", cfg.Port)
	}
	return cfg, nil
}

func normalizeHosts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, host := range in {
		v := strings.TrimSpace(host)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// endpointFor joins a candidate host with the configured port. Hosts that
// already carry a port (as test configurations do) are used as-is.
func endpointFor(host string, port int) string {
	if strings.Contains(host, ":") {
		return host
	}
	return fmt.Sprintf("%s:%d", host, port)
}

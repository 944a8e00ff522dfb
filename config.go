package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// configEnvVar names the environment variable holding the config path when
// --config is not given.
const configEnvVar = "QSERVER_CONFIG"

// Flush policies.
const (
	FlushLazy  = "lazy"
	FlushEager = "eager"
)

// Connection limit policies.
const (
	LimitBlock  = "block"
	LimitReject = "reject"
)

// Config is the server configuration.
type Config struct {
	// Host is the address to listen on.
	Host string `yaml:"host"`

	// Port is the TCP port to listen on.
	Port int `yaml:"port"`

	// MaxConnections bounds the number of concurrent sessions.
	MaxConnections int `yaml:"max_connections"`

	// LimitPolicy decides what happens to clients beyond MaxConnections.
	// Values: "block" (wait in the accept backlog), "reject" (turned away)
	LimitPolicy string `yaml:"limit_policy"`

	// Flush selects when queued commands are executed.
	// Values: "lazy" (at flush points), "eager" (after every command)
	Flush string `yaml:"flush"`

	// Backend names the execution backend created for each session.
	Backend string `yaml:"backend"`

	// Debug ends a session on internal errors instead of reporting them.
	Debug bool `yaml:"debug"`

	// Verbose enables debug logging of every command.
	Verbose bool `yaml:"verbose"`

	// Seed seeds measurement sampling; 0 seeds randomly. Each session gets
	// its own generator derived from it.
	Seed uint64 `yaml:"seed"`

	// MaxQubits bounds the qubits of any one session.
	MaxQubits int `yaml:"max_qubits"`

	// DumpLimit bounds the amplitudes printed by dump.
	DumpLimit int `yaml:"dump_limit"`

	// MetricsListen is the address of the Prometheus endpoint; empty
	// disables it.
	MetricsListen string `yaml:"metrics_listen"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           1901,
		MaxConnections: 30,
		LimitPolicy:    LimitBlock,
		Flush:          FlushLazy,
		Backend:        "statevector",
		Debug:          false,
		MaxQubits:      defaultMaxQubits,
		DumpLimit:      64,
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	return cfg, nil
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if c.MaxConnections < 1 {
		return errors.Errorf("max_connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.LimitPolicy != LimitBlock && c.LimitPolicy != LimitReject {
		return errors.Errorf("limit_policy must be %q or %q, got %q", LimitBlock, LimitReject, c.LimitPolicy)
	}
	if c.Flush != FlushLazy && c.Flush != FlushEager {
		return errors.Errorf("flush must be %q or %q, got %q", FlushLazy, FlushEager, c.Flush)
	}
	if !slices.Contains(BackendNames(), c.Backend) {
		return errors.Errorf("unknown backend %q (available: %v)", c.Backend, BackendNames())
	}
	if c.MaxQubits < 1 || c.MaxQubits > 30 {
		return errors.Errorf("max_qubits must be between 1 and 30, got %d", c.MaxQubits)
	}
	if c.DumpLimit < 0 {
		return errors.Errorf("dump_limit must not be negative, got %d", c.DumpLimit)
	}
	return nil
}

// Address returns the listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

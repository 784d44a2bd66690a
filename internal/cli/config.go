package cli

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults used when neither flags nor environment set a value.
const (
	DefaultDepth    = 32
	DefaultListenIP = "127.0.0.1"
	DefaultPort     = 7000
	DefaultBacklog  = 128
	DefaultBufSize  = 4096
)

// Config holds all configuration for the goring commands.
type Config struct {
	Depth    uint32 // submission queue depth
	ListenIP string
	Port     uint16
	V6       bool
	Backlog  int32
	BufSize  uint32 // per-read buffer size
	Verbose  bool
}

// FromEnv fills in any zero-valued fields from GORING_* environment
// variables, then applies defaults. Flag values already set take
// precedence.
func (c *Config) FromEnv() error {
	if c.Depth == 0 {
		n, err := envUint("GORING_DEPTH", DefaultDepth)
		if err != nil {
			return err
		}
		c.Depth = uint32(n)
	}
	if c.ListenIP == "" {
		c.ListenIP = envString("GORING_LISTEN_IP", DefaultListenIP)
	}
	if c.Port == 0 {
		n, err := envUint("GORING_PORT", DefaultPort)
		if err != nil {
			return err
		}
		if n > 65535 {
			return fmt.Errorf("GORING_PORT out of range: %d", n)
		}
		c.Port = uint16(n)
	}
	if c.Backlog == 0 {
		n, err := envUint("GORING_BACKLOG", DefaultBacklog)
		if err != nil {
			return err
		}
		c.Backlog = int32(n)
	}
	if c.BufSize == 0 {
		n, err := envUint("GORING_BUFSIZE", DefaultBufSize)
		if err != nil {
			return err
		}
		c.BufSize = uint32(n)
	}
	return nil
}

// Validate checks that the config is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Depth == 0 {
		return fmt.Errorf("queue depth must be positive")
	}
	if c.Depth > 4096 {
		return fmt.Errorf("queue depth too large: %d", c.Depth)
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("invalid backlog: %d", c.Backlog)
	}
	if c.BufSize == 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envUint(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

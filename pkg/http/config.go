package http

import (
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	DefaultMaxHeaderSize  = 32768
	DefaultIdleExpiry     = 15 * time.Second
	DefaultEvictionTick   = 5 * time.Second
	DefaultPoolGrace      = 30 * time.Second
	DefaultChunkHeaderMax = 100
	DefaultSendChunk      = 4096
	DefaultDialTimeout    = 10 * time.Second
)

// DialFunc opens the connection for a session. addr always carries a port
type DialFunc func(addr string) (net.Conn, error)

// Config provides the framing limits and pool timings used by a Client and the sessions it creates.
// Zero values are not defaults, use NewDefaultConfig
type Config struct {
	// MaxHeaderSize caps the bytes of a response header section
	MaxHeaderSize int `toml:"max_header_size" json:"max_header_size" mapstructure:"max_header_size"`
	// ChunkHeaderMax caps the bytes of a single chunk-size line
	ChunkHeaderMax int `toml:"chunk_header_max" json:"chunk_header_max" mapstructure:"chunk_header_max"`
	// SendChunk is the size of the staging buffer used to stream request bodies and receive slices
	SendChunk int `toml:"send_chunk" json:"send_chunk" mapstructure:"send_chunk"`

	// IdleExpiry is how long a released session may sit in the pool before it is evicted
	IdleExpiry time.Duration `toml:"idle_expiry" json:"idle_expiry" mapstructure:"idle_expiry"`
	// EvictionTick is the period of the eviction worker
	EvictionTick time.Duration `toml:"eviction_tick" json:"eviction_tick" mapstructure:"eviction_tick"`
	// PoolGrace is how long an empty pool keeps its eviction worker alive after the last acquire or release
	PoolGrace time.Duration `toml:"pool_grace" json:"pool_grace" mapstructure:"pool_grace"`

	// DialTimeout bounds the TCP connect of the default dialer
	DialTimeout time.Duration `toml:"dial_timeout" json:"dial_timeout" mapstructure:"dial_timeout"`

	// Dial overrides how sessions connect. Tests use this to connect to in memory listeners
	Dial DialFunc `toml:"-" json:"-" mapstructure:"-"`
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxHeaderSize:  DefaultMaxHeaderSize,
		ChunkHeaderMax: DefaultChunkHeaderMax,
		SendChunk:      DefaultSendChunk,
		IdleExpiry:     DefaultIdleExpiry,
		EvictionTick:   DefaultEvictionTick,
		PoolGrace:      DefaultPoolGrace,
		DialTimeout:    DefaultDialTimeout,
	}
}

type ErrBadConfig struct {
	fields []string
}

func (e *ErrBadConfig) Error() string {
	return fmt.Sprintf("config has invalid values in: %v", strings.Join(e.fields, ", "))
}

// Fields returns the names of the offending fields
func (e *ErrBadConfig) Fields() []string {
	return append([]string{}, e.fields...)
}

func (c *Config) Validate() error {
	badFields := make([]string, 0)
	if c.MaxHeaderSize < 4 {
		badFields = append(badFields, "MaxHeaderSize")
	}
	if c.ChunkHeaderMax < 3 {
		badFields = append(badFields, "ChunkHeaderMax")
	}
	if c.SendChunk < 1 {
		badFields = append(badFields, "SendChunk")
	}
	if c.IdleExpiry <= 0 {
		badFields = append(badFields, "IdleExpiry")
	}
	if c.EvictionTick <= 0 {
		badFields = append(badFields, "EvictionTick")
	}
	if c.PoolGrace < 0 {
		badFields = append(badFields, "PoolGrace")
	}
	if c.DialTimeout < 0 {
		badFields = append(badFields, "DialTimeout")
	}
	if len(badFields) != 0 {
		return &ErrBadConfig{fields: badFields}
	}
	return nil
}

// dialer returns the configured DialFunc or a TCP dialer bounded by DialTimeout
func (c *Config) dialer() DialFunc {
	if c.Dial != nil {
		return c.Dial
	}
	timeout := c.DialTimeout
	return func(addr string) (net.Conn, error) {
		return net.DialTimeout("tcp", addr, timeout)
	}
}

type ConfigOption func(*Config)

func MaxHeaderSize(n int) ConfigOption {
	return func(c *Config) {
		c.MaxHeaderSize = n
	}
}

func ChunkHeaderMax(n int) ConfigOption {
	return func(c *Config) {
		c.ChunkHeaderMax = n
	}
}

func SendChunk(n int) ConfigOption {
	return func(c *Config) {
		c.SendChunk = n
	}
}

func IdleExpiry(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.IdleExpiry = d
	}
}

func EvictionTick(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.EvictionTick = d
	}
}

func PoolGrace(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.PoolGrace = d
	}
}

func DialTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.DialTimeout = d
	}
}

func Dial(fn DialFunc) ConfigOption {
	return func(c *Config) {
		c.Dial = fn
	}
}

// WithConfig copies every field of cfg over the current config
func WithConfig(cfg Config) ConfigOption {
	return func(c *Config) {
		*c = cfg
	}
}

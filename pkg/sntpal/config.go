package sntpal

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AndrewLester/sntpal/internal/log"
	"github.com/AndrewLester/sntpal/internal/ntp"
	"github.com/AndrewLester/sntpal/pkg/civil"
)

const (
	DefaultRetryCap      uint16 = 0xFFFF
	DefaultPollsPerRetry uint16 = 0xFFF
	DefaultBufferSize           = ntp.PacketSize
	DefaultPollInterval         = time.Millisecond

	DefaultAttemptTimeout = time.Minute

	DefaultConfigPath = "/etc/sntpal.yaml"
	DefaultSocketPath = "/var/run/sntpald.sock"
)

var (
	ErrInvalidServer   = errors.New("invalid server address")
	ErrInvalidTimezone = errors.New("invalid timezone index")
)

// Config holds the parameters of a single synchronization attempt.
type Config struct {
	Server        string        `mapstructure:"server" yaml:"server"`
	LocalPort     uint16        `mapstructure:"local_port" yaml:"local_port"`
	Timezone      int           `mapstructure:"timezone" yaml:"timezone"`
	RetryCap      uint16        `mapstructure:"retry_cap" yaml:"retry_cap"`
	PollsPerRetry uint16        `mapstructure:"polls_per_retry" yaml:"polls_per_retry"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	BufferSize    int           `mapstructure:"buffer_size" yaml:"buffer_size"`
	EpochYear     uint16        `mapstructure:"epoch_year" yaml:"epoch_year"`
}

// SyncConfig schedules the daemon's attempts. AttemptTimeout bounds a single
// attempt whatever the retry settings allow.
type SyncConfig struct {
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	StepClock      bool          `mapstructure:"step_clock" yaml:"step_clock"`
	SetRTC         bool          `mapstructure:"set_rtc" yaml:"set_rtc"`
}

// FileConfig is the layout of the configuration file.
type FileConfig struct {
	Config `mapstructure:",squash" yaml:",inline"`

	Sync   SyncConfig `mapstructure:"sync" yaml:"sync"`
	Socket string     `mapstructure:"socket" yaml:"socket"`
	Log    log.Config `mapstructure:"log" yaml:"log"`
}

func (cfg *Config) setDefaults() {
	if cfg.RetryCap == 0 {
		cfg.RetryCap = DefaultRetryCap
	}
	if cfg.PollsPerRetry == 0 {
		cfg.PollsPerRetry = DefaultPollsPerRetry
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.EpochYear == 0 {
		cfg.EpochYear = civil.DefaultEpochYear
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
}

func (cfg *Config) Validate() error {
	if _, err := ParseServer(cfg.Server); err != nil {
		return err
	}

	if _, ok := civil.Zone(cfg.Timezone); !ok {
		return fmt.Errorf("%w: %d, must be 0..%d", ErrInvalidTimezone, cfg.Timezone, civil.ZoneCount-1)
	}

	if cfg.BufferSize != 0 && cfg.BufferSize < ntp.PacketSize {
		return fmt.Errorf("%w: %d bytes", ErrBufferTooSmall, cfg.BufferSize)
	}

	return nil
}

// ParseServer accepts an IPv4 address with an optional port, defaulting to 123.
func ParseServer(server string) (netip.AddrPort, error) {
	addrPort, err := netip.ParseAddrPort(server)
	if err != nil {
		addr, addrErr := netip.ParseAddr(server)
		if addrErr != nil {
			return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidServer, server)
		}

		addrPort = netip.AddrPortFrom(addr, 123)
	}

	addr := addrPort.Addr().Unmap()
	if !addr.Is4() {
		return netip.AddrPort{}, fmt.Errorf("%w: %q is not IPv4", ErrInvalidServer, server)
	}

	return netip.AddrPortFrom(addr, addrPort.Port()), nil
}

// ResolveServer turns a hostname into the IPv4 form Config.Server expects.
func ResolveServer(host string) (string, error) {
	if _, err := ParseServer(host); err == nil {
		return host, nil
	}

	name, port, err := net.SplitHostPort(host)
	if err != nil {
		name, port = host, ntp.Port
	}

	address, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(name, port))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidServer, err)
	}

	addrPort := address.AddrPort()
	return netip.AddrPortFrom(addrPort.Addr().Unmap(), addrPort.Port()).String(), nil
}

func setViperDefaults(v *viper.Viper) {
	v.SetDefault("server", "")
	v.SetDefault("local_port", 0)
	v.SetDefault("timezone", 21)
	v.SetDefault("retry_cap", DefaultRetryCap)
	v.SetDefault("polls_per_retry", DefaultPollsPerRetry)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("buffer_size", DefaultBufferSize)
	v.SetDefault("epoch_year", civil.DefaultEpochYear)
	v.SetDefault("sync.interval", time.Hour)
	v.SetDefault("sync.max_backoff", 5*time.Minute)
	v.SetDefault("sync.attempt_timeout", DefaultAttemptTimeout)
	v.SetDefault("sync.step_clock", false)
	v.SetDefault("sync.set_rtc", false)
	v.SetDefault("socket", DefaultSocketPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}

// NewViper returns a viper instance with defaults and SNTPAL_ environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)

	v.SetEnvPrefix("sntpal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads path into v. A missing file at the default path is not an
// error; defaults and environment still apply.
func LoadConfig(v *viper.Viper, path string) (*FileConfig, error) {
	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !(path == DefaultConfigPath && (errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist))) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

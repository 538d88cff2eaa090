// Package config loads driver settings from flags, environment, an optional
// config file and defaults, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ESCPOS_LISTEN_ADDR
const EnvPrefix = "ESCPOS"

// Keys
const (
	KeyListenAddr      = "listen_addr"
	KeyPublicPort      = "public_port"
	KeyPublicAddress   = "public_address"
	KeyAddressEchoURL  = "address_echo_url"
	KeyRegistryPath    = "registry_path"
	KeyRetryBackoff    = "retry_backoff"
	KeyReceiptWindow   = "receipt_window"
	KeyCashboxWindow   = "cashbox_window"
	KeyHotplugInterval = "hotplug_interval"
	KeyLineWidth       = "line_width"
	KeyPrinterDots     = "printer_dots"
	KeySerialPort      = "serial_port"
	KeySerialBaud      = "serial_baud"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
)

// Config is the resolved driver configuration
type Config struct {
	ListenAddr      string
	PublicPort      int
	PublicAddress   string
	AddressEchoURL  string
	RegistryPath    string
	RetryBackoff    time.Duration
	ReceiptWindow   time.Duration
	CashboxWindow   time.Duration
	HotplugInterval time.Duration
	LineWidth       int
	PrinterDots     int
	SerialPort      string
	SerialBaud      int
	LogLevel        string
	LogFormat       string
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyListenAddr, "0.0.0.0:8069")
	v.SetDefault(KeyPublicPort, 8069)
	v.SetDefault(KeyPublicAddress, "")
	v.SetDefault(KeyAddressEchoURL, "https://api.ipify.org")
	v.SetDefault(KeyRegistryPath, "escpos_devices.json")
	v.SetDefault(KeyRetryBackoff, 5*time.Second)
	v.SetDefault(KeyReceiptWindow, time.Hour)
	v.SetDefault(KeyCashboxWindow, 12*time.Second)
	v.SetDefault(KeyHotplugInterval, 10*time.Second)
	v.SetDefault(KeyLineWidth, 40)
	v.SetDefault(KeyPrinterDots, 576)
	v.SetDefault(KeySerialPort, "")
	v.SetDefault(KeySerialBaud, 9600)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file, when given, into v and resolves the configuration
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", file)
		}
	}

	cfg := Config{
		ListenAddr:      v.GetString(KeyListenAddr),
		PublicPort:      v.GetInt(KeyPublicPort),
		PublicAddress:   v.GetString(KeyPublicAddress),
		AddressEchoURL:  v.GetString(KeyAddressEchoURL),
		RegistryPath:    v.GetString(KeyRegistryPath),
		RetryBackoff:    v.GetDuration(KeyRetryBackoff),
		ReceiptWindow:   v.GetDuration(KeyReceiptWindow),
		CashboxWindow:   v.GetDuration(KeyCashboxWindow),
		HotplugInterval: v.GetDuration(KeyHotplugInterval),
		LineWidth:       v.GetInt(KeyLineWidth),
		PrinterDots:     v.GetInt(KeyPrinterDots),
		SerialPort:      v.GetString(KeySerialPort),
		SerialBaud:      v.GetInt(KeySerialBaud),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the driver cannot run with
func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return errors.New("listen_addr must not be empty")
	case c.RegistryPath == "":
		return errors.New("registry_path must not be empty")
	case c.LineWidth <= 0:
		return errors.Errorf("line_width must be positive, got %d", c.LineWidth)
	case c.PrinterDots <= 0:
		return errors.Errorf("printer_dots must be positive, got %d", c.PrinterDots)
	case c.HotplugInterval <= 0:
		return errors.Errorf("hotplug_interval must be positive, got %s", c.HotplugInterval)
	case c.RetryBackoff <= 0:
		return errors.Errorf("retry_backoff must be positive, got %s", c.RetryBackoff)
	case c.ReceiptWindow <= 0 || c.CashboxWindow <= 0:
		return errors.New("receipt_window and cashbox_window must be positive")
	case c.PublicPort <= 0 || c.PublicPort > 65535:
		return errors.Errorf("public_port out of range: %d", c.PublicPort)
	}

	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		return errors.Errorf("log_format must be auto, console or json, got %q", c.LogFormat)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type PowerCfg struct {
	BudgetMW     float64 `yaml:"budget_mw"`     // 0 disables the ceiling
	IndicatorPin string  `yaml:"indicator_pin"` // gpio name, "" for none
}

type SPI struct {
	Port   string `yaml:"port"`    // spireg name, "" picks the first
	FreqHz int    `yaml:"freq_hz"` // pixel bit rate
}

type PWM struct {
	GPIO int `yaml:"gpio"` // BCM number
}

type Strip struct {
	Reverse bool `yaml:"reverse"`
	Offset  int  `yaml:"offset"`
}

type Display struct {
	Enabled  bool          `yaml:"enabled"`
	Bus      string        `yaml:"bus"`
	Interval time.Duration `yaml:"interval"`
}

type Link struct {
	Addr                string `yaml:"addr"` // control listener: /link, /frames, /metrics
	LocalName           string `yaml:"local_name"`
	PauseWhileConnected bool   `yaml:"pause_while_connected"`
}

type HTTP struct {
	Addr          string        `yaml:"addr"`
	StatusRefresh time.Duration `yaml:"status_refresh"`
}

type Config struct {
	Driver     string `yaml:"driver"` // "spi" | "pwm" | "sim" | "fake"
	ColorOrder string `yaml:"color_order"`
	MaxLights  int    `yaml:"max_lights"`
	Brightness uint8  `yaml:"brightness"`
	FPS        int    `yaml:"fps"`
	CometHue   uint8  `yaml:"comet_hue"`
	// Comet tail thins unevenly: each step only coin-flip-selected pixels fade.
	CometRandomFade bool `yaml:"comet_random_fade"`

	PollTimeout  time.Duration `yaml:"poll_timeout"`
	SettingsPath string        `yaml:"settings_path"`
	LogLevel     string        `yaml:"log_level"`

	Power   PowerCfg `yaml:"power"`
	SPI     SPI      `yaml:"spi,omitempty"`
	PWM     PWM      `yaml:"pwm,omitempty"`
	Strip   Strip    `yaml:"strip"`
	Display Display  `yaml:"display"`
	Link    Link     `yaml:"link"`
	HTTP    HTTP     `yaml:"http"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Driver:       "sim",
		ColorOrder:   "GRB",
		MaxLights:    150,
		Brightness:   128,
		FPS:          50,
		PollTimeout:  10 * time.Millisecond,
		SettingsPath: "settings.bin",
		LogLevel:     "info",
		Power:        PowerCfg{BudgetMW: 10000},
		SPI:          SPI{FreqHz: 800000},
		PWM:          PWM{GPIO: 18},
		Display:      Display{Interval: time.Second},
		Link:         Link{Addr: ":8081", LocalName: "XmasLights_001", PauseWhileConnected: true},
		HTTP:         HTTP{Addr: ":8080", StatusRefresh: 2 * time.Second},
	}
}

// Load reads path over the defaults, so a partial file only overrides what
// it names.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case "spi", "pwm", "sim", "fake":
	default:
		errs = append(errs, fmt.Errorf("driver %q: want spi, pwm, sim or fake", c.Driver))
	}
	if c.MaxLights <= 0 {
		errs = append(errs, fmt.Errorf("max_lights must be positive, got %d", c.MaxLights))
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		errs = append(errs, fmt.Errorf("fps must be in 1..1000, got %d", c.FPS))
	}
	if c.Power.BudgetMW < 0 {
		errs = append(errs, fmt.Errorf("power.budget_mw must not be negative"))
	}
	if c.PollTimeout < 0 {
		errs = append(errs, fmt.Errorf("poll_timeout must not be negative"))
	}
	if c.Display.Enabled && c.Display.Interval <= 0 {
		errs = append(errs, fmt.Errorf("display.interval must be positive"))
	}
	if c.HTTP.Addr == "" || c.Link.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr and link.addr are required"))
	} else if c.HTTP.Addr == c.Link.Addr {
		errs = append(errs, fmt.Errorf("http.addr and link.addr must differ, both are %q", c.HTTP.Addr))
	}
	if c.SettingsPath == "" {
		errs = append(errs, fmt.Errorf("settings_path is required"))
	}
	return errors.Join(errs...)
}

// FrameInterval is the render loop period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(max(1, c.FPS))
}

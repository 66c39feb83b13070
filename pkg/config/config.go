package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	GPS      GPSConfig      `yaml:"gps"`
	Rotation RotationConfig `yaml:"rotation"`
	Button   ButtonConfig   `yaml:"button"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains serial port configuration for the telemetry device.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// GPSConfig contains fix-quality thresholds.
type GPSConfig struct {
	MinSatellites int           `yaml:"min_satellites"` // Minimum satellite count for a loggable fix
	MaxFixAge     time.Duration `yaml:"max_fix_age"`    // Fix older than this counts as no fix
}

// RotationConfig contains rotation-sensor parameters.
type RotationConfig struct {
	PulsesPerRev  int           `yaml:"pulses_per_rev"`
	PulseDebounce time.Duration `yaml:"pulse_debounce"`   // Minimum gap between accepted pulses
	Refresh       time.Duration `yaml:"refresh"`          // Display estimate cadence
	Timeout       time.Duration `yaml:"timeout"`          // No pulse for this long forces rate to zero
	MaxDeltaPerMs float64       `yaml:"max_delta_per_ms"` // Display rate-limit (RPM per elapsed ms)
}

// ButtonConfig contains the physical button timing parameters.
type ButtonConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	LongPress time.Duration `yaml:"long_press"`
}

// LoggingConfig contains log buffer and session parameters.
type LoggingConfig struct {
	BufferLines   int           `yaml:"buffer_lines"`   // LogBuffer capacity in records
	FlushInterval time.Duration `yaml:"flush_interval"` // Time-based flush trigger
	Cooldown      time.Duration `yaml:"cooldown"`       // Minimum gap between session transitions
	MessageTTL    time.Duration `yaml:"message_ttl"`    // Status message display duration
}

// StorageConfig contains removable storage parameters.
type StorageConfig struct {
	MountPath     string        `yaml:"mount_path"`     // Directory where the removable volume mounts
	CheckInterval time.Duration `yaml:"check_interval"` // Presence probe interval
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	StartLat   float64       `yaml:"start_lat"`  // Starting latitude (degrees)
	StartLon   float64       `yaml:"start_lon"`  // Starting longitude (degrees)
	Heading    float64       `yaml:"heading"`    // Course over ground (degrees)
	SpeedMph   float64       `yaml:"speed_mph"`  // Simulated ground speed
	RPM        float64       `yaml:"rpm"`        // Simulated rotation rate
	Satellites int           `yaml:"satellites"` // Reported satellite count
	FixRate    time.Duration `yaml:"fix_rate"`   // Fix update period
	FixDelay   time.Duration `yaml:"fix_delay"`  // Time before the simulated receiver gets a fix
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		GPS: GPSConfig{
			MinSatellites: 4,
			MaxFixAge:     3 * time.Second,
		},
		Rotation: RotationConfig{
			PulsesPerRev:  1,
			PulseDebounce: 10 * time.Millisecond,
			Refresh:       33 * time.Millisecond,
			Timeout:       2 * time.Second,
			MaxDeltaPerMs: 5.0,
		},
		Button: ButtonConfig{
			Debounce:  30 * time.Millisecond,
			LongPress: 800 * time.Millisecond,
		},
		Logging: LoggingConfig{
			BufferLines:   16,
			FlushInterval: 10 * time.Second,
			Cooldown:      time.Second,
			MessageTTL:    3 * time.Second,
		},
		Storage: StorageConfig{
			MountPath:     "/media/usb0",
			CheckInterval: time.Second,
		},
		Mock: MockConfig{
			StartLat:   54.6872,
			StartLon:   25.2797,
			Heading:    90,
			SpeedMph:   35,
			RPM:        2200,
			Satellites: 7,
			FixRate:    time.Second,
			FixDelay:   2 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.GPS.MinSatellites == 0 {
		c.GPS.MinSatellites = def.GPS.MinSatellites
	}
	if c.GPS.MaxFixAge == 0 {
		c.GPS.MaxFixAge = def.GPS.MaxFixAge
	}

	if c.Rotation.PulsesPerRev == 0 {
		c.Rotation.PulsesPerRev = def.Rotation.PulsesPerRev
	}
	if c.Rotation.PulseDebounce == 0 {
		c.Rotation.PulseDebounce = def.Rotation.PulseDebounce
	}
	if c.Rotation.Refresh == 0 {
		c.Rotation.Refresh = def.Rotation.Refresh
	}
	if c.Rotation.Timeout == 0 {
		c.Rotation.Timeout = def.Rotation.Timeout
	}
	if c.Rotation.MaxDeltaPerMs == 0 {
		c.Rotation.MaxDeltaPerMs = def.Rotation.MaxDeltaPerMs
	}

	if c.Button.Debounce == 0 {
		c.Button.Debounce = def.Button.Debounce
	}
	if c.Button.LongPress == 0 {
		c.Button.LongPress = def.Button.LongPress
	}

	if c.Logging.BufferLines == 0 {
		c.Logging.BufferLines = def.Logging.BufferLines
	}
	if c.Logging.FlushInterval == 0 {
		c.Logging.FlushInterval = def.Logging.FlushInterval
	}
	if c.Logging.Cooldown == 0 {
		c.Logging.Cooldown = def.Logging.Cooldown
	}
	if c.Logging.MessageTTL == 0 {
		c.Logging.MessageTTL = def.Logging.MessageTTL
	}

	if c.Storage.MountPath == "" {
		c.Storage.MountPath = def.Storage.MountPath
	}
	if c.Storage.CheckInterval == 0 {
		c.Storage.CheckInterval = def.Storage.CheckInterval
	}

	if c.Mock.FixRate == 0 {
		c.Mock.FixRate = def.Mock.FixRate
	}
	if c.Mock.Satellites == 0 {
		c.Mock.Satellites = def.Mock.Satellites
	}
}

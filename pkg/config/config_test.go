package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 4, cfg.GPS.MinSatellites)
	assert.Equal(t, 3*time.Second, cfg.GPS.MaxFixAge)
	assert.Equal(t, 1, cfg.Rotation.PulsesPerRev)
	assert.Equal(t, 10*time.Millisecond, cfg.Rotation.PulseDebounce)
	assert.Equal(t, 2*time.Second, cfg.Rotation.Timeout)
	assert.Equal(t, 30*time.Millisecond, cfg.Button.Debounce)
	assert.Equal(t, 800*time.Millisecond, cfg.Button.LongPress)
	assert.Equal(t, 16, cfg.Logging.BufferLines)
	assert.Equal(t, 10*time.Second, cfg.Logging.FlushInterval)
	assert.Equal(t, "/media/usb0", cfg.Storage.MountPath)
	assert.Equal(t, time.Second, cfg.Storage.CheckInterval)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "COM7"
  baud_rate: 9600

gps:
  min_satellites: 5
  max_fix_age: 2s

rotation:
  pulses_per_rev: 2
  pulse_debounce: 5ms
  refresh: 50ms
  timeout: 1500ms
  max_delta_per_ms: 3.0

logging:
  buffer_lines: 32
  flush_interval: 5s
  cooldown: 2s

storage:
  mount_path: "/media/sdcard"
  check_interval: 500ms
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "COM7", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, 5, cfg.GPS.MinSatellites)
	assert.Equal(t, 2*time.Second, cfg.GPS.MaxFixAge)
	assert.Equal(t, 2, cfg.Rotation.PulsesPerRev)
	assert.Equal(t, 5*time.Millisecond, cfg.Rotation.PulseDebounce)
	assert.Equal(t, 1500*time.Millisecond, cfg.Rotation.Timeout)
	assert.Equal(t, 32, cfg.Logging.BufferLines)
	assert.Equal(t, 5*time.Second, cfg.Logging.FlushInterval)
	assert.Equal(t, 2*time.Second, cfg.Logging.Cooldown)
	assert.Equal(t, "/media/sdcard", cfg.Storage.MountPath)
	assert.Equal(t, 500*time.Millisecond, cfg.Storage.CheckInterval)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB1"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)          // default
	assert.Equal(t, 10*time.Second, cfg.Logging.FlushInterval) // default
	assert.Equal(t, 16, cfg.Logging.BufferLines)          // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Logging.FlushInterval = 15 * time.Second

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 15*time.Second, loaded.Logging.FlushInterval)
}

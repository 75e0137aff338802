package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/location-engine/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file"` // Path to the device identity file
	} `yaml:"identity"`

	Engine struct {
		Priority        string        `yaml:"priority"`         // high_accuracy, balanced, low_power or no_power
		Interval        time.Duration `yaml:"interval"`         // Desired update interval
		FastestInterval time.Duration `yaml:"fastest_interval"` // Fastest acceptable update interval
		Displacement    float64       `yaml:"displacement"`     // Minimum distance in meters between updates
		Mode            string        `yaml:"mode"`             // listener or broadcast
		UseFused        bool          `yaml:"use_fused"`        // Prefer the fused backend when available
		Workers         int           `yaml:"workers"`          // Workers delivering listener events, must be 1
	} `yaml:"engine"`

	Backend struct {
		PollTimeout time.Duration `yaml:"poll_timeout"` // Timeout for a single source read

		GPS struct {
			Enabled    bool   `yaml:"enabled"`     // Enable the serial GPS provider
			DevicePort string `yaml:"device_port"` // UNIX port where the GPS sensor is mounted
			BaudRate   int    `yaml:"baud_rate"`   // The baud rate for the GPS sensor
		} `yaml:"gps"`

		Network struct {
			Enabled    bool   `yaml:"enabled"`      // Enable the geolocation API provider
			MapsAPIKey string `yaml:"maps_api_key"` // Google maps API key
			ModemIndex int    `yaml:"modem_index"`  // ModemManager index used for cell data
		} `yaml:"network"`
	} `yaml:"backend"`

	Services struct {
		Location struct {
			Topic   string `yaml:"topic"`   // MQTT topic for location messages
			Enabled bool   `yaml:"enabled"` // Enable/disable location service
			QOS     int    `yaml:"qos"`     // MQTT QoS level for location messages
		} `yaml:"location_service"`

		Status struct {
			Topic    string        `yaml:"topic"`    // MQTT topic for status messages
			Enabled  bool          `yaml:"enabled"`  // Enable/disable status service
			Interval time.Duration `yaml:"interval"` // Interval between status messages
			QOS      int           `yaml:"qos"`      // MQTT QoS level for status messages
		} `yaml:"status_service"`

		WebSocket struct {
			Enabled    bool   `yaml:"enabled"`     // Enable/disable local websocket streaming
			ListenAddr string `yaml:"listen_addr"` // Address serving the /ws endpoint
		} `yaml:"websocket_service"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file.
// Missing engine settings fall back to defaults; invalid ones are rejected.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.Priority == "" {
		c.Engine.Priority = "high_accuracy"
	}
	if c.Engine.Interval <= 0 {
		c.Engine.Interval = time.Second
	}
	if c.Engine.FastestInterval <= 0 {
		c.Engine.FastestInterval = c.Engine.Interval
	}
	if c.Engine.Mode == "" {
		c.Engine.Mode = "listener"
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 1
	}
	if c.Backend.GPS.BaudRate == 0 {
		c.Backend.GPS.BaudRate = 9600
	}
	if c.Services.Status.Interval <= 0 {
		c.Services.Status.Interval = 30 * time.Second
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Engine.Priority {
	case "high_accuracy", "balanced", "low_power", "no_power":
	default:
		return fmt.Errorf("invalid engine priority %q", c.Engine.Priority)
	}
	switch c.Engine.Mode {
	case "listener", "broadcast":
	default:
		return fmt.Errorf("invalid engine mode %q", c.Engine.Mode)
	}
	// Listener events keep their emission order only on a single worker.
	if c.Engine.Workers != 1 {
		return fmt.Errorf("engine workers must be 1, got %d", c.Engine.Workers)
	}
	if c.Engine.Displacement < 0 {
		return fmt.Errorf("engine displacement must not be negative, got %v", c.Engine.Displacement)
	}
	if c.Backend.GPS.Enabled && c.Backend.GPS.DevicePort == "" {
		return fmt.Errorf("gps provider enabled without device_port")
	}
	if c.Backend.Network.Enabled && c.Backend.Network.MapsAPIKey == "" {
		return fmt.Errorf("network provider enabled without maps_api_key")
	}
	if c.Services.WebSocket.Enabled && c.Services.WebSocket.ListenAddr == "" {
		return fmt.Errorf("websocket service enabled without listen_addr")
	}
	return nil
}

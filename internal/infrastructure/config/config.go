package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the sensor node.
// Defaults are the node's static configuration; a YAML file and environment
// variables may override them.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Credentials CredentialsConfig `yaml:"credentials"`
	WiFi        WiFiConfig        `yaml:"wifi"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Sensors     SensorsConfig     `yaml:"sensors"`
	Journal     JournalConfig     `yaml:"journal"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig identifies this node.
type DeviceConfig struct {
	// ThingName is the long-form device identity, used for the status topic
	// and as a tag on mirrored metrics.
	ThingName string `yaml:"thing_name"`

	// ClientID is the MQTT client identifier presented to the broker.
	ClientID string `yaml:"client_id"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Timeouts  MQTTTimeoutConfig   `yaml:"timeouts"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// StatusMessages publishes a retained online/offline status for the
	// device and registers the offline message as the Last Will.
	StatusMessages bool `yaml:"status_messages"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ServerName overrides the TLS server name. Defaults to Host.
	ServerName string `yaml:"server_name,omitempty"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTTimeoutConfig holds the fixed timeout passed to each broker call.
type MQTTTimeoutConfig struct {
	Connect    time.Duration `yaml:"connect"`
	Publish    time.Duration `yaml:"publish"`
	Disconnect time.Duration `yaml:"disconnect"`
	KeepAlive  time.Duration `yaml:"keepalive"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
// Reconnection is disabled by default: a lost session stays lost.
//
// The client library starts its backoff at one second and doubles it up to
// MaxDelay; the first delay is not configurable.
type MQTTReconnectConfig struct {
	Enabled  bool          `yaml:"enabled"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// CredentialsConfig selects where the TLS key material comes from.
type CredentialsConfig struct {
	// Source is "embedded" (compiled into the binary) or "file".
	Source   string `yaml:"source"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
}

// WiFiConfig records the wireless network the node joins. Association is
// performed by the host operating system; these values are informational.
type WiFiConfig struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	Security string `yaml:"security"`
}

// TelemetryConfig controls the publish loop.
type TelemetryConfig struct {
	Topic string `yaml:"topic"`

	// Interval is the sleep after each publish attempt.
	Interval time.Duration `yaml:"interval"`

	// SettleDelay is the pause after each individual sensor read.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// Format is "compact" ({T: 21, H: 40}) or "json".
	Format string `yaml:"format"`

	// EchoSubscribe subscribes to Topic and logs received messages.
	EchoSubscribe bool `yaml:"echo_subscribe"`
}

// SensorsConfig selects and configures the sensor driver.
type SensorsConfig struct {
	// Driver is "iio" or "simulated".
	Driver    string          `yaml:"driver"`
	IIO       IIOConfig       `yaml:"iio"`
	Simulated SimulatedConfig `yaml:"simulated"`
}

// IIOConfig points at Linux Industrial I/O sysfs attributes.
type IIOConfig struct {
	TemperaturePath  string  `yaml:"temperature_path"`
	HumidityPath     string  `yaml:"humidity_path"`
	TemperatureScale float64 `yaml:"temperature_scale"`
	HumidityScale    float64 `yaml:"humidity_scale"`
}

// SimulatedConfig configures the synthetic sensor used on development hosts.
type SimulatedConfig struct {
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
	Jitter      float64 `yaml:"jitter"`
	Seed        int64   `yaml:"seed"`
}

// JournalConfig contains settings for the local SQLite publish journal.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// Retention prunes entries older than this at startup (0 keeps everything).
	Retention time.Duration `yaml:"retention"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Credential sources.
const (
	CredentialsEmbedded = "embedded"
	CredentialsFile     = "file"
)

// Payload formats.
const (
	FormatCompact = "compact"
	FormatJSON    = "json"
)

// Sensor drivers.
const (
	DriverIIO       = "iio"
	DriverSimulated = "simulated"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (the node's static configuration)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SENSORNODE_SECTION_KEY
// For example: SENSORNODE_MQTT_HOST, SENSORNODE_WIFI_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//   - optional: When true, a missing file is not an error
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
		// Static defaults apply.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the node's built-in configuration.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ThingName: "BasementSTM32L475",
			ClientID:  "STM32L475",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "192.168.0.22",
				Port: 1883,
			},
			QoS: 1,
			Timeouts: MQTTTimeoutConfig{
				Connect:    12 * time.Second,
				Publish:    2500 * time.Millisecond,
				Disconnect: 2500 * time.Millisecond,
				KeepAlive:  60 * time.Second,
			},
			Reconnect: MQTTReconnectConfig{
				MaxDelay: time.Minute,
			},
		},
		Credentials: CredentialsConfig{
			Source: CredentialsEmbedded,
		},
		WiFi: WiFiConfig{
			SSID:     "JuneSeo2",
			Security: "wpa2",
		},
		Telemetry: TelemetryConfig{
			Topic:       "freertos/mqtt/basement",
			Interval:    5 * time.Second,
			SettleDelay: time.Second,
			Format:      FormatCompact,
		},
		Sensors: SensorsConfig{
			Driver: DriverIIO,
			IIO: IIOConfig{
				TemperaturePath:  "/sys/bus/iio/devices/iio:device0/in_temp_input",
				HumidityPath:     "/sys/bus/iio/devices/iio:device0/in_humidityrelative_input",
				TemperatureScale: 0.001,
				HumidityScale:    0.001,
			},
			Simulated: SimulatedConfig{
				Temperature: 21,
				Humidity:    45,
				Jitter:      0.5,
			},
		},
		Journal: JournalConfig{
			Path:        "./data/sensornode.db",
			WALMode:     true,
			BusyTimeout: 5,
			Retention:   30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SENSORNODE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("SENSORNODE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SENSORNODE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SENSORNODE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Device
	if v := os.Getenv("SENSORNODE_DEVICE_CLIENT_ID"); v != "" {
		cfg.Device.ClientID = v
	}

	// Wi-Fi
	if v := os.Getenv("SENSORNODE_WIFI_PASSWORD"); v != "" {
		cfg.WiFi.Password = v
	}

	// Sensors
	if v := os.Getenv("SENSORNODE_SENSORS_DRIVER"); v != "" {
		cfg.Sensors.Driver = v
	}

	// InfluxDB
	if v := os.Getenv("SENSORNODE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.ClientID == "" {
		errs = append(errs, "device.client_id is required")
	}
	if c.Device.ThingName == "" {
		errs = append(errs, "device.thing_name is required")
	}
	if strings.ContainsAny(c.Device.ThingName, "+#/") {
		errs = append(errs, "device.thing_name must not contain +, # or /")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Timeouts.Connect <= 0 {
		errs = append(errs, "mqtt.timeouts.connect must be positive")
	}
	if c.MQTT.Timeouts.Publish <= 0 {
		errs = append(errs, "mqtt.timeouts.publish must be positive")
	}
	if c.MQTT.Timeouts.Disconnect < 0 {
		errs = append(errs, "mqtt.timeouts.disconnect must not be negative")
	}
	if c.MQTT.Timeouts.KeepAlive < 0 {
		errs = append(errs, "mqtt.timeouts.keepalive must not be negative")
	}
	if c.MQTT.Reconnect.Enabled && c.MQTT.Reconnect.MaxDelay <= 0 {
		errs = append(errs, "mqtt.reconnect.max_delay must be positive when reconnect is enabled")
	}

	// Credentials validation
	switch c.Credentials.Source {
	case CredentialsEmbedded:
	case CredentialsFile:
		if c.MQTT.Broker.TLS && (c.Credentials.CertFile == "" || c.Credentials.KeyFile == "") {
			errs = append(errs, "credentials.cert_file and credentials.key_file are required when source is file")
		}
	default:
		errs = append(errs, "credentials.source must be embedded or file")
	}

	// Wi-Fi validation
	switch strings.ToLower(c.WiFi.Security) {
	case "open", "wep", "wpa", "wpa2":
	default:
		errs = append(errs, "wifi.security must be open, wep, wpa, or wpa2")
	}

	// Telemetry validation
	if c.Telemetry.Topic == "" {
		errs = append(errs, "telemetry.topic is required")
	}
	if strings.ContainsAny(c.Telemetry.Topic, "+#") {
		errs = append(errs, "telemetry.topic must not contain wildcards")
	}
	if c.Telemetry.Interval <= 0 {
		errs = append(errs, "telemetry.interval must be positive")
	}
	if c.Telemetry.SettleDelay < 0 {
		errs = append(errs, "telemetry.settle_delay must not be negative")
	}
	switch c.Telemetry.Format {
	case FormatCompact, FormatJSON:
	default:
		errs = append(errs, "telemetry.format must be compact or json")
	}

	// Sensors validation
	switch c.Sensors.Driver {
	case DriverIIO:
		if c.Sensors.IIO.TemperaturePath == "" || c.Sensors.IIO.HumidityPath == "" {
			errs = append(errs, "sensors.iio.temperature_path and sensors.iio.humidity_path are required")
		}
	case DriverSimulated:
		if c.Sensors.Simulated.Jitter < 0 {
			errs = append(errs, "sensors.simulated.jitter must not be negative")
		}
	default:
		errs = append(errs, "sensors.driver must be iio or simulated")
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}
	if c.Journal.Retention < 0 {
		errs = append(errs, "journal.retention must not be negative")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerAddress returns host:port for logging.
func (c *Config) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.MQTT.Broker.Host, c.MQTT.Broker.Port)
}

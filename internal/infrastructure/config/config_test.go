package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestDefault_StaticConfiguration(t *testing.T) {
	cfg := Default()

	if cfg.Device.ClientID != "STM32L475" {
		t.Errorf("Device.ClientID = %q, want %q", cfg.Device.ClientID, "STM32L475")
	}
	if cfg.Device.ThingName != "BasementSTM32L475" {
		t.Errorf("Device.ThingName = %q, want %q", cfg.Device.ThingName, "BasementSTM32L475")
	}
	if cfg.MQTT.Broker.Host != "192.168.0.22" || cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("broker = %s, want 192.168.0.22:1883", cfg.BrokerAddress())
	}
	if cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = true, want false")
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("MQTT.QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.MQTT.Timeouts.Connect != 12*time.Second {
		t.Errorf("Timeouts.Connect = %v, want 12s", cfg.MQTT.Timeouts.Connect)
	}
	if cfg.MQTT.Timeouts.Publish != 2500*time.Millisecond {
		t.Errorf("Timeouts.Publish = %v, want 2.5s", cfg.MQTT.Timeouts.Publish)
	}
	if cfg.MQTT.Reconnect.Enabled {
		t.Error("Reconnect.Enabled = true, want false")
	}
	if cfg.Telemetry.Topic != "freertos/mqtt/basement" {
		t.Errorf("Telemetry.Topic = %q", cfg.Telemetry.Topic)
	}
	if cfg.Telemetry.Interval != 5*time.Second {
		t.Errorf("Telemetry.Interval = %v, want 5s", cfg.Telemetry.Interval)
	}
	if cfg.Telemetry.SettleDelay != time.Second {
		t.Errorf("Telemetry.SettleDelay = %v, want 1s", cfg.Telemetry.SettleDelay)
	}
	if cfg.WiFi.SSID != "JuneSeo2" {
		t.Errorf("WiFi.SSID = %q", cfg.WiFi.SSID)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  client_id: "test-client"
mqtt:
  broker:
    host: "localhost"
    port: 1884
  qos: 0
  timeouts:
    publish: "750ms"
telemetry:
  topic: "test/basement"
  interval: "2s"
  format: json
sensors:
  driver: simulated
`
	cfg, err := Load(writeConfig(t, content), false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ClientID != "test-client" {
		t.Errorf("Device.ClientID = %q, want %q", cfg.Device.ClientID, "test-client")
	}
	// Unset fields keep their defaults.
	if cfg.Device.ThingName != "BasementSTM32L475" {
		t.Errorf("Device.ThingName = %q, want default", cfg.Device.ThingName)
	}
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
	if cfg.MQTT.Timeouts.Publish != 750*time.Millisecond {
		t.Errorf("Timeouts.Publish = %v, want 750ms", cfg.MQTT.Timeouts.Publish)
	}
	if cfg.MQTT.Timeouts.Connect != 12*time.Second {
		t.Errorf("Timeouts.Connect = %v, want default 12s", cfg.MQTT.Timeouts.Connect)
	}
	if cfg.Telemetry.Interval != 2*time.Second {
		t.Errorf("Telemetry.Interval = %v, want 2s", cfg.Telemetry.Interval)
	}
	if cfg.Telemetry.Format != FormatJSON {
		t.Errorf("Telemetry.Format = %q, want json", cfg.Telemetry.Format)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml", false)
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MissingOptionalFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Telemetry.Topic != "freertos/mqtt/basement" {
		t.Errorf("Telemetry.Topic = %q, want default", cfg.Telemetry.Topic)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"), false)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
mqtt:
  qos: 3
telemetry:
  topic: "sensors/#"
`
	_, err := Load(writeConfig(t, content), false)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"mqtt.qos", "telemetry.topic"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENSORNODE_MQTT_HOST", "broker.local")
	t.Setenv("SENSORNODE_MQTT_USERNAME", "node")
	t.Setenv("SENSORNODE_MQTT_PASSWORD", "secret")
	t.Setenv("SENSORNODE_WIFI_PASSWORD", "wifi-secret")
	t.Setenv("SENSORNODE_SENSORS_DRIVER", "simulated")
	t.Setenv("SENSORNODE_DEVICE_CLIENT_ID", "node-02")

	cfg, err := Load(writeConfig(t, "mqtt:\n  broker:\n    host: \"file-host\"\n"), false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "node" || cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth = %+v, want env override", cfg.MQTT.Auth)
	}
	if cfg.WiFi.Password != "wifi-secret" {
		t.Errorf("WiFi.Password = %q, want env override", cfg.WiFi.Password)
	}
	if cfg.Sensors.Driver != DriverSimulated {
		t.Errorf("Sensors.Driver = %q, want simulated", cfg.Sensors.Driver)
	}
	if cfg.Device.ClientID != "node-02" {
		t.Errorf("Device.ClientID = %q, want node-02", cfg.Device.ClientID)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty client id",
			mutate:  func(c *Config) { c.Device.ClientID = "" },
			wantErr: "device.client_id",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "zero publish timeout",
			mutate:  func(c *Config) { c.MQTT.Timeouts.Publish = 0 },
			wantErr: "mqtt.timeouts.publish",
		},
		{
			name:    "negative disconnect timeout",
			mutate:  func(c *Config) { c.MQTT.Timeouts.Disconnect = -2500 * time.Millisecond },
			wantErr: "mqtt.timeouts.disconnect",
		},
		{
			name: "reconnect without max delay",
			mutate: func(c *Config) {
				c.MQTT.Reconnect.Enabled = true
				c.MQTT.Reconnect.MaxDelay = 0
			},
			wantErr: "mqtt.reconnect.max_delay",
		},
		{
			name:    "thing name with wildcards",
			mutate:  func(c *Config) { c.Device.ThingName = "base/+/#" },
			wantErr: "device.thing_name",
		},
		{
			name:    "thing name with level separator",
			mutate:  func(c *Config) { c.Device.ThingName = "basement/north" },
			wantErr: "device.thing_name",
		},
		{
			name:    "unknown credentials source",
			mutate:  func(c *Config) { c.Credentials.Source = "vault" },
			wantErr: "credentials.source",
		},
		{
			name: "file credentials without paths",
			mutate: func(c *Config) {
				c.MQTT.Broker.TLS = true
				c.Credentials.Source = CredentialsFile
			},
			wantErr: "credentials.cert_file",
		},
		{
			name:    "unknown wifi security",
			mutate:  func(c *Config) { c.WiFi.Security = "wpa3-enterprise" },
			wantErr: "wifi.security",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Telemetry.Interval = 0 },
			wantErr: "telemetry.interval",
		},
		{
			name:    "unknown format",
			mutate:  func(c *Config) { c.Telemetry.Format = "xml" },
			wantErr: "telemetry.format",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Sensors.Driver = "i2c" },
			wantErr: "sensors.driver",
		},
		{
			name: "journal without path",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Path = ""
			},
			wantErr: "journal.path",
		},
		{
			name: "influxdb without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Org = "home"
				c.InfluxDB.Bucket = "basement"
			},
			wantErr: "influxdb.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

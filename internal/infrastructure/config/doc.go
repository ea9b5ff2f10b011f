// Package config handles loading and validating sensor node configuration.
//
// This package manages:
//   - The built-in static configuration (broker, device identity, Wi-Fi, topic)
//   - Loading overrides from a YAML file
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Passwords and tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Telemetry.Topic)
package config

// Package config handles loading and validating Lumen Station configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (LUMEN_* pattern)
//   - Validation of required fields
//   - Default value handling
//
// Runtime-tunable values (auto-apply, display idle timeout, base event ID)
// do not live here; they are persisted settings owned by the station and
// changeable without a restart. Config covers everything fixed at boot:
// hub address, node identity, tick cadence, storage, API, and the optional
// MQTT/InfluxDB mirrors.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.HubAddress())
package config

// Package config handles loading and validating Autofill Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with AUTOFILL_* environment variables
//   - Validation of every section, reported as one aggregated error
//   - Default value handling
//
// Sensitive values (MQTT password, InfluxDB token) should be supplied through
// the environment rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/autofill.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config

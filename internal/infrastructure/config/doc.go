// Package config handles loading and validating Pushgate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with PUSHGATE_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The service key and JWT secret should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config

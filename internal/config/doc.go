// Package config loads and validates Book Archive configuration.
//
// This package manages:
//   - Default values for the database and logging collaborators
//   - Loading configuration from YAML, or JSON with comments (hujson)
//   - Overriding with BOOKARCHIVE_* environment variables
//   - Validation against an embedded CUE schema
//   - Writing a starter configuration file atomically
//
// Usage:
//
//	cfg, err := config.Load("bookarchive.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Database.Path)
//
// An empty path skips the file and yields defaults plus environment overrides.
package config

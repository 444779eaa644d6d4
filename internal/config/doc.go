// Package config provides configuration management for kwarchive.
//
// Run options come from CLI flags on top of NewConfig defaults. Source
// definitions (search endpoint, selectors, credentials) come from a YAML
// sources file; see FindConfigFile for the lookup order.
package config

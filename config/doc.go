// Package config loads bingo server settings.
//
// Values are layered, lowest precedence first:
//   - built-in defaults
//   - a YAML file (bingo.yaml, or the path given with --config)
//   - BINGO_* environment variables (nested keys use "_", e.g. BINGO_NGROK_DOMAIN)
//
// Command-line flags are applied on top by the main package.
//
// Example bingo.yaml:
//
//	host: 0.0.0.0
//	port: 8080
//	allowed_origins: ["https://bingo.example.com"]
//	win_rule: lines
//	room_idle_ttl: 30m
//	cleanup_interval: 1m
//	log_level: debug
//	ngrok:
//	  enabled: false
package config

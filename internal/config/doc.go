// Package config handles loading and parsing the cohort client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cohort/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Backend: 127.0.0.1:7490 (a local cohort-docserver)
//   - Log directory: ~/.local/share/cohort/logs
//   - Log file: <log_dir>/cohort.log
//   - Listener cooldown: 4s
//   - Request timeout: 3s
//
// # TOML Format
//
//	backend_url = "https://docs.example.com"
//	user_id = "u-42"
//	user_email = "ada@example.com"
//	admin_email = "lead@example.com"
//	role = "trainee"
//	log_dir = "~/.local/share/cohort/logs"
//	probe_url = "https://docs.example.com/healthz"
//	cooldown_seconds = 4
//	metrics_addr = "127.0.0.1:9464"
//	request_timeout_seconds = 3
//
// Every field is optional. cooldown_seconds is clamped to the 3-5s window
// the listener registry accepts. Values are trimmed, then checked with
// go-playground/validator; a malformed email, role or address is an error
// rather than a silent default.
package config

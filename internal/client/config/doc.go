// Package config loads runtime configuration for the Image Studio CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .json are read as JSON, .yaml/.yml as YAML.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Durations in files may be strings like "3s" or integer nanoseconds:
//
//	server_endpoint_addr: 127.0.0.1:50051
//	generate_url: http://127.0.0.1:8080
//	history_backend: local
//	online_check_interval: 3s
package config

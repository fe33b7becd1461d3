package config

import (
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/flagx"
	"github.com/dmitrijs2005/imagestudio/internal/timex"
)

// FileConfig is the on-disk shape of the CLI config, shared by JSON and
// YAML. Empty values leave the current setting untouched.
type FileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	GenerateURL         string         `json:"generate_url" yaml:"generate_url"`
	GenerateTimeout     timex.Duration `json:"generate_timeout" yaml:"generate_timeout"`
	HistoryBackend      string         `json:"history_backend" yaml:"history_backend"`
	LocalDBPath         string         `json:"local_db_path" yaml:"local_db_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	DownloadDir         string         `json:"download_dir" yaml:"download_dir"`
}

// parseFile overlays cfg with the file named by -c/-config, if any.
// Panics on read or decode errors.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeFile(path, &fc); err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerEndpointAddr, fc.ServerEndpointAddr)
	setString(&cfg.GenerateURL, fc.GenerateURL)
	setDuration(&cfg.GenerateTimeout, fc.GenerateTimeout)
	setString(&cfg.HistoryBackend, fc.HistoryBackend)
	setString(&cfg.LocalDBPath, fc.LocalDBPath)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.DownloadDir, fc.DownloadDir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

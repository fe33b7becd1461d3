package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-t", "-b", "-d", "-i", "-l", "-f", "-o"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string     address and port of the gRPC server
//	-g string     base URL of the image generation API
//	-t duration   generation request timeout (0 = none)
//	-b string     history backend: remote or local
//	-d string     local SQLite database file
//	-i int        online check interval (in seconds)
//	-l string     log level
//	-f string     log format: text, json, console, zerolog
//	-o string     download directory for saved images
//
// Unknown arguments are filtered out with flagx.FilterArgs. Panics on bad values.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.GenerateURL, "g", cfg.GenerateURL, "image generation API base URL")
	fs.DurationVar(&cfg.GenerateTimeout, "t", cfg.GenerateTimeout, "generation request timeout")
	fs.StringVar(&cfg.HistoryBackend, "b", cfg.HistoryBackend, "history backend (remote|local)")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
}

package config

import (
	"flag"
	"os"

	"github.com/shreels/tgauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-b string   Telegram bot token
//	-s string   session JWT secret
//	-e string   environment name ("production" hides error details)
//
// os.Args is first filtered with flagx.FilterArgs so flags owned by other
// layers (-c, -env-file) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-b", "-s", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BotToken, "b", config.BotToken, "telegram bot token")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "session JWT secret")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment name")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/eternalsentinel/sentinel/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key for admin auth
//	-t int      admin token validity, minutes
//	-i int      scheduler sweep interval, seconds
//	-w int      default worker concurrency per queue
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so this binary's flags never collide with any future
// embedding of the config package.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-i", "-w", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP bind address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "admin JWT secret key")

	adminTokenValidityMinutes := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin token validity (minutes)")
	schedulerIntervalSeconds := fs.Int("i", int(config.SchedulerInterval.Seconds()), "scheduler sweep interval (seconds)")
	fs.IntVar(&config.WorkerConcurrency, "w", config.WorkerConcurrency, "default worker concurrency per queue")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AdminTokenValidityDuration = time.Duration(*adminTokenValidityMinutes) * time.Minute
	config.SchedulerInterval = time.Duration(*schedulerIntervalSeconds) * time.Second
}

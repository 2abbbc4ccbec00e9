/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/quizbox/internal/game"
)

type Config struct {
	bind            string
	cleanupInterval time.Duration
	hostMigration   string
	maxUploadSize   int64
	playerGrace     time.Duration
	port            int
	prefix          string
	profile         bool
	publicURL       string
	redisURL        string
	s3Bucket        string
	s3PresignTTL    time.Duration
	s3Region        string
	sessionTimeout  time.Duration
	tlsCert         string
	tlsKey          string
	uploadDir       string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout (must be positive): %s", c.sessionTimeout)
	}
	if c.cleanupInterval <= 0 {
		return fmt.Errorf("invalid cleanup interval (must be positive): %s", c.cleanupInterval)
	}
	if c.playerGrace < 0 {
		return fmt.Errorf("invalid player grace period (must not be negative): %s", c.playerGrace)
	}
	if c.maxUploadSize < 1 {
		return fmt.Errorf("invalid max upload size (must be positive): %d", c.maxUploadSize)
	}
	if _, err := game.PolicyByName(c.hostMigration); err != nil {
		return err
	}
	if c.s3Bucket == "" && c.uploadDir == "" {
		return errors.New("one of --upload-dir or --s3-bucket must be set")
	}
	if c.publicURL != "" {
		u, err := url.Parse(c.publicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid public url: %q", c.publicURL)
		}
	}

	c.prefix = strings.TrimSuffix(c.prefix, "/")
	c.publicURL = strings.TrimSuffix(c.publicURL, "/")

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUIZBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizbox",
		Short:         "A realtime multiplayer music quiz server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZBOX_BIND)")
	fs.DurationVar(&cfg.cleanupInterval, "cleanup-interval", 30*time.Minute, "time between sweeps for stale games (env: QUIZBOX_CLEANUP_INTERVAL)")
	fs.StringVar(&cfg.hostMigration, "host-migration", "delete", "what to do when a host disconnects: delete or promote (env: QUIZBOX_HOST_MIGRATION)")
	fs.Int64Var(&cfg.maxUploadSize, "max-upload-size", 50*1000*1000, "maximum size of an uploaded audio clip, in bytes (env: QUIZBOX_MAX_UPLOAD_SIZE)")
	fs.DurationVar(&cfg.playerGrace, "player-grace", 0, "time a disconnected player keeps their seat, 0 to remove immediately (env: QUIZBOX_PLAYER_GRACE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: QUIZBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: QUIZBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: QUIZBOX_PROFILE)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "externally reachable base url, used for join links (env: QUIZBOX_PUBLIC_URL)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis url to mirror game snapshots to, empty to disable (env: QUIZBOX_REDIS_URL)")
	fs.StringVar(&cfg.s3Bucket, "s3-bucket", "", "store uploads in this s3 bucket instead of on disk (env: QUIZBOX_S3_BUCKET)")
	fs.DurationVar(&cfg.s3PresignTTL, "s3-presign-ttl", 24*time.Hour, "lifetime of presigned upload urls (env: QUIZBOX_S3_PRESIGN_TTL)")
	fs.StringVar(&cfg.s3Region, "s3-region", "", "s3 region, defaults to the aws config chain (env: QUIZBOX_S3_REGION)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 4*time.Hour, "maximum age of a game before it is swept (env: QUIZBOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: QUIZBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: QUIZBOX_TLS_KEY)")
	fs.StringVar(&cfg.uploadDir, "upload-dir", "uploads", "directory to store uploaded audio in (env: QUIZBOX_UPLOAD_DIR)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: QUIZBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: QUIZBOX_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("quizbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

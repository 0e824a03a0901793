package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/folio/internal/log"
)

// EnvPrefix is prepended to upper-cased flag names by FillFromEnv.
const EnvPrefix = "FOLIO_"

type App struct {
	// logging
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	// listeners / ops
	HTTPPort        int
	AdminPort       int
	EnablePprof     bool
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64

	// content + static site
	ContentDir   string
	StaticDir    string
	WatchContent bool

	// admin data store
	DatabaseURL   string
	RunMigrations bool

	// auth
	JWTSecret         string
	JWTSecretSSMParam string
	JWTKeyARN         string
	JWTIssuer         string
	JWTAudience       string

	// video blob store
	VideoS3Bucket   string
	VideoS3Prefix   string
	VideoURLTTL     time.Duration
	VideoPublicBase string

	// http behaviour
	ExposeInternalErrors bool
	TrustedProxyHops     int
	RateLimitRPS         float64
	RateLimitBurst       int
	MaxBodyBytes         int64
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "ops listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on ops port only)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.StringVar(&c.ContentDir, "content-dir", "content", "directory holding .md/.mdx content files")
	fs.StringVar(&c.StaticDir, "static-dir", "", "pre-built site directory to serve (empty serves the maintenance page)")
	fs.BoolVar(&c.WatchContent, "watch-content", true, "watch content-dir and publish a content revision header")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "postgres URL for admin content (empty uses an in-memory store)")
	fs.BoolVar(&c.RunMigrations, "run-migrations", true, "apply embedded schema migrations at startup")

	fs.StringVar(&c.JWTSecret, "jwt-secret", "", "HMAC secret for admin bearer tokens")
	fs.StringVar(&c.JWTSecretSSMParam, "jwt-secret-ssm-param", "", "ssm SecureString parameter holding the HMAC secret")
	fs.StringVar(&c.JWTKeyARN, "jwt-key-arn", "", "KMS key ARN whose public key verifies ES256/RS256 tokens")
	fs.StringVar(&c.JWTIssuer, "jwt-issuer", "", "required token issuer (empty skips the check)")
	fs.StringVar(&c.JWTAudience, "jwt-audience", "", "required token audience (empty skips the check)")

	fs.StringVar(&c.VideoS3Bucket, "video-s3-bucket", "", "s3 bucket holding videos (empty disables /api/video)")
	fs.StringVar(&c.VideoS3Prefix, "video-s3-prefix", "videos/", "s3 key prefix for videos")
	fs.DurationVar(&c.VideoURLTTL, "video-url-ttl", 15*time.Minute, "lifetime of presigned video URLs")
	fs.StringVar(&c.VideoPublicBase, "video-public-base-url", "", "public base URL for videos (skips presigning)")

	fs.BoolVar(&c.ExposeInternalErrors, "expose-internal-errors", false, "return internal error messages in admin responses")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "number of trusted reverse proxies in front of the server (0..8)")
	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 20, "per-IP request rate (0 disables)")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 40, "per-IP burst size")
	fs.Int64Var(&c.MaxBodyBytes, "max-body-bytes", 1<<20, "max request body size in bytes")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, errors.New("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, errors.New("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}
	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if strings.TrimSpace(c.ContentDir) == "" {
		errs = append(errs, errors.New("CONTENT_DIR is required"))
	}

	if c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, errors.New("DATABASE_URL must be a postgres:// URL"))
		}
	}

	keySources := 0
	for _, s := range []string{c.JWTSecret, c.JWTSecretSSMParam, c.JWTKeyARN} {
		if s != "" {
			keySources++
		}
	}
	if keySources == 0 {
		errs = append(errs, errors.New("one of JWT_SECRET, JWT_SECRET_SSM_PARAM or JWT_KEY_ARN is required"))
	} else if keySources > 1 {
		errs = append(errs, errors.New("JWT_SECRET, JWT_SECRET_SSM_PARAM and JWT_KEY_ARN are mutually exclusive"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 bytes (got %d)", len(c.JWTSecret)))
	}

	if c.VideoS3Bucket != "" {
		if c.VideoPublicBase != "" {
			if u, err := url.Parse(c.VideoPublicBase); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("VIDEO_PUBLIC_BASE_URL must be a URL (got %q)", c.VideoPublicBase))
			}
		} else if c.VideoURLTTL < time.Minute || c.VideoURLTTL > 7*24*time.Hour {
			errs = append(errs, fmt.Errorf("VIDEO_URL_TTL must be 1m..168h (got %s)", c.VideoURLTTL))
		}
	}

	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 8 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..8 (got %d)", c.TrustedProxyHops))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be >= 0 (got %g)", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 when rate limiting (got %d)", c.RateLimitBurst))
	}
	if c.MaxBodyBytes < 1024 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be >= 1024 (got %d)", c.MaxBodyBytes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

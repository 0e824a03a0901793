package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/keithlinneman/folio/internal/adminhttp"
	"github.com/keithlinneman/folio/internal/apiresp"
	"github.com/keithlinneman/folio/internal/auth"
	"github.com/keithlinneman/folio/internal/cfg"
	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/health"
	"github.com/keithlinneman/folio/internal/httpmw"
	"github.com/keithlinneman/folio/internal/httpserver"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/metrics"
	"github.com/keithlinneman/folio/internal/opshttp"
	"github.com/keithlinneman/folio/internal/otelx"
	"github.com/keithlinneman/folio/internal/prof"
	"github.com/keithlinneman/folio/internal/ratelimit"
	"github.com/keithlinneman/folio/internal/siteapi"
	"github.com/keithlinneman/folio/internal/sitehandler"
	v "github.com/keithlinneman/folio/internal/version"
)

const (
	component       = "server"
	drainPeriod     = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	var envFile string
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "print version and build information and exit")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before environment fill (missing file is ignored)")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.Short())
		os.Exit(0)
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", envFile, err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, _ := log.ParseLevel(conf.LogLevel)
	stLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stLvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "starting",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"content_dir", conf.ContentDir,
		"static_dir", conf.StaticDir,
		"database", conf.DatabaseURL != "",
		"video_bucket", conf.VideoS3Bucket,
		"enable_tracing", conf.EnableTracing,
		"enable_pyroscope", conf.EnablePyroscope,
	)

	m := metrics.New()
	m.SetBuildInfo(component, vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName + "." + component,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags:          prof.Tags(component, vi),
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed, continuing without profiling")
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	// collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:     conf.EnableTracing,
		Endpoint:    conf.OTLPEndpoint,
		Insecure:    true,
		SampleRatio: conf.TraceSample,
		Service:     v.AppName,
		Component:   component,
		Version:     vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed, tracing disabled")
		shutdownOTEL = func(context.Context) error { return nil }
	}

	awsc := &awsClients{}

	verifier, err := newVerifier(ctx, conf, awsc)
	if err != nil {
		fatal(ctx, L, err, "auth verifier setup failed")
	}
	responder := apiresp.Responder{ExposeInternal: conf.ExposeInternalErrors}
	gate, err := auth.NewGate(auth.GateOptions{Verifier: verifier, Metrics: m, Responder: responder})
	if err != nil {
		fatal(ctx, L, err, "auth gate setup failed")
	}

	st, closeStore, err := openStore(ctx, conf, L)
	if err != nil {
		fatal(ctx, L, err, "admin store setup failed")
	}
	defer closeStore()

	loader, err := content.NewLoader(content.LoaderOptions{Dir: conf.ContentDir, Logger: L, Metrics: m})
	if err != nil {
		fatal(ctx, L, err, "content loader setup failed")
	}

	var revision httpmw.RevisionSource
	if conf.WatchContent {
		watcher, err := content.NewWatcher(content.WatcherOptions{
			Dir:     conf.ContentDir,
			Logger:  L,
			Metrics: m,
			OnChange: func(string) {
				reportContentProblems(ctx, L, loader)
			},
		})
		if err != nil {
			L.Error(ctx, err, "content watcher disabled", "content_dir", conf.ContentDir)
		} else {
			revision = watcher
			go func() {
				if err := watcher.Run(ctx); err != nil {
					L.Error(ctx, err, "content watcher stopped")
				}
			}()
		}
	}

	var videos siteapi.VideoLocator
	if conf.VideoS3Bucket != "" {
		sv, err := newVideos(ctx, conf, awsc, m)
		if err != nil {
			fatal(ctx, L, err, "video store setup failed")
		}
		videos = sv
	}

	siteAPI, err := siteapi.NewAPI(siteapi.APIOptions{Content: loader, Videos: videos})
	if err != nil {
		fatal(ctx, L, err, "site api setup failed")
	}
	adminAPI, err := adminhttp.NewAPI(adminhttp.APIOptions{
		Store:        st,
		Gate:         gate,
		Responder:    responder,
		Metrics:      m,
		MaxBodyBytes: conf.MaxBodyBytes,
	})
	if err != nil {
		fatal(ctx, L, err, "admin api setup failed")
	}

	site, err := sitehandler.New(sitehandler.Options{Logger: L, Site: sitehandler.Dir(conf.StaticDir)})
	if err != nil {
		fatal(ctx, L, err, "site handler setup failed")
	}

	var shutdownGate health.ShutdownGate
	readiness := health.All(
		&shutdownGate,
		health.Named("store", 2*time.Second, st.Ping),
		health.Named("content", 0, func(context.Context) error {
			_, err := os.Stat(conf.ContentDir)
			return err
		}),
	)

	var rateLimitMW func(next http.Handler) http.Handler
	if conf.RateLimitRPS > 0 {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			ratelimit.WithExempt(func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/-/") }),
			ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
			ratelimit.WithOnFirstDenied(func(ip string) { L.Warn(ctx, "rate limit triggered", "ip", ip) }),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit visitor table full, rejecting new visitors")
			}),
		)
		rateLimitMW = limiter.Middleware
	}

	siteStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHTTPPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  rateLimitMW,
		Health:       health.OK,
		Readiness:    readiness,
		APIRoutes: func(r chi.Router) {
			siteAPI.RegisterRoutes(r)
			adminAPI.RegisterRoutes(r)
		},
		SiteHandler:  site,
		Revision:     revision,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedProxyHops},
		MaxBodyBytes: conf.MaxBodyBytes,
	})
	if err != nil {
		fatal(ctx, L, err, "failed to start http listener")
	}

	opsStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.OK,
		Readiness:   readiness,
		OnPanic:     m.IncHTTPPanic,
	})
	if err != nil {
		fatal(ctx, L, err, "failed to start ops listener")
	}

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()
	bg := context.Background()
	L.Info(bg, "shutdown signal received, draining", "drain", drainPeriod.String())

	// readiness fails from here so load balancers stop routing to us
	shutdownGate.Close()
	force := make(chan os.Signal, 1)
	signal.Notify(force, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
	case <-force:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(force)

	sctx, cancel := context.WithTimeout(bg, shutdownTimeout)
	defer cancel()
	if err := siteStop(sctx); err != nil {
		L.Error(bg, err, "http server shutdown")
	}
	if err := opsStop(sctx); err != nil {
		L.Error(bg, err, "ops server shutdown")
	}
	if err := shutdownOTEL(sctx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	L.Info(bg, "shutdown complete")
}

// fatal logs and exits. Deferred cleanups do not run.
func fatal(ctx context.Context, L log.Logger, err error, msg string) {
	L.Error(ctx, err, msg)
	_ = L.Sync()
	os.Exit(1)
}

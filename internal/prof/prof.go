// Package prof pushes continuous profiles to a Pyroscope server.
package prof

import (
	"context"
	"net/url"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/version"
	"github.com/keithlinneman/folio/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	TenantID      string
	BasicAuthUser string
	BasicAuthPass string
	Tags          map[string]string

	// zero leaves the runtime defaults alone
	MutexProfileFraction int
	BlockProfileRate     int
}

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// Tags returns the default profile labels for a build.
func Tags(component string, info version.Info) map[string]string {
	return map[string]string{
		"component":  component,
		"version":    info.Version,
		"commit":     info.Commit,
		"go_version": info.GoVersion,
	}
}

func (o Options) validate() error {
	if o.AppName == "" {
		return xerrors.New("prof: application name is required")
	}
	u, err := url.Parse(o.ServerAddress)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xerrors.Newf("prof: invalid server address %q", o.ServerAddress)
	}
	return nil
}

// Start begins profiling and returns an idempotent stop. Disabled
// profiling returns a no-op stop.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	noop := func() {}

	if !opts.Enabled {
		L.Debug(ctx, "pyroscope disabled")
		return noop, nil
	}
	if err := opts.validate(); err != nil {
		return noop, err
	}

	if opts.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexProfileFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   opts.AppName,
		ServerAddress:     opts.ServerAddress,
		TenantID:          opts.TenantID,
		BasicAuthUser:     opts.BasicAuthUser,
		BasicAuthPassword: opts.BasicAuthPass,
		Tags:              opts.Tags,
		ProfileTypes:      profileTypes,
	})
	if err != nil {
		return noop, xerrors.Wrapf(err, "start pyroscope profiler for %s", opts.AppName)
	}
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		if err := profiler.Stop(); err != nil {
			L.Error(context.Background(), err, "pyroscope stop")
			return
		}
		L.Info(context.Background(), "pyroscope stopped")
	}, nil
}

package main

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/folio/internal/auth"
	"github.com/keithlinneman/folio/internal/blob"
	"github.com/keithlinneman/folio/internal/cfg"
	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/cryptoutil"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/metrics"
	"github.com/keithlinneman/folio/internal/store"
	"github.com/keithlinneman/folio/internal/xerrors"
)

// awsClients loads the shared AWS config on first use so local runs
// without AWS settings never touch the credential chain.
type awsClients struct {
	once sync.Once
	cfg  aws.Config
	err  error
}

func (a *awsClients) config(ctx context.Context) (aws.Config, error) {
	a.once.Do(func() {
		a.cfg, a.err = config.LoadDefaultConfig(ctx)
		if a.err != nil {
			a.err = xerrors.Wrap(a.err, "load AWS config")
		}
	})
	return a.cfg, a.err
}

// newVerifier picks the token key from exactly one of: inline secret,
// SSM SecureString, KMS public key.
func newVerifier(ctx context.Context, conf cfg.App, a *awsClients) (*auth.JWTVerifier, error) {
	opts := auth.JWTOptions{Issuer: conf.JWTIssuer, Audience: conf.JWTAudience}

	switch {
	case conf.JWTSecret != "":
		opts.Secret = []byte(conf.JWTSecret)
	case conf.JWTSecretSSMParam != "":
		awsCfg, err := a.config(ctx)
		if err != nil {
			return nil, err
		}
		secret, err := cryptoutil.FetchSecretParameter(ctx, ssm.NewFromConfig(awsCfg), conf.JWTSecretSSMParam)
		if err != nil {
			return nil, err
		}
		opts.Secret = secret
	case conf.JWTKeyARN != "":
		awsCfg, err := a.config(ctx)
		if err != nil {
			return nil, err
		}
		keys := cryptoutil.NewKMSKeySource(kms.NewFromConfig(awsCfg), conf.JWTKeyARN)
		// fail at boot rather than on the first admin request
		if _, err := keys.PublicKey(ctx); err != nil {
			return nil, err
		}
		opts.Keys = keys
	}
	return auth.NewJWTVerifier(opts)
}

// openStore returns Postgres when a database URL is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, conf cfg.App, L log.Logger) (store.Store, func(), error) {
	if conf.DatabaseURL == "" {
		L.Warn(ctx, "no database configured, admin content is kept in memory and lost on restart")
		return store.NewMemory(), func() {}, nil
	}
	db, err := store.Open(ctx, conf.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if conf.RunMigrations {
		if err := store.Migrate(db.DB, L); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			L.Error(context.Background(), err, "close database")
		}
	}
	return store.NewPostgres(db), closeFn, nil
}

func newVideos(ctx context.Context, conf cfg.App, a *awsClients, m *metrics.ServerMetrics) (*blob.S3Videos, error) {
	awsCfg, err := a.config(ctx)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg)
	return blob.NewS3Videos(blob.S3VideosOptions{
		Client:        client,
		Presigner:     s3.NewPresignClient(client),
		Bucket:        conf.VideoS3Bucket,
		Prefix:        conf.VideoS3Prefix,
		PublicBaseURL: conf.VideoPublicBase,
		URLTTL:        conf.VideoURLTTL,
		Metrics:       m,
	})
}

// reportContentProblems warns about every content file the loader will
// skip and returns how many there are.
func reportContentProblems(ctx context.Context, L log.Logger, loader *content.Loader) int {
	reports, err := loader.Check(ctx)
	if err != nil {
		L.Error(ctx, err, "content check failed")
		return 0
	}
	bad := 0
	for _, r := range reports {
		if r.Err == nil {
			continue
		}
		bad++
		L.Warn(ctx, "content file will be skipped", "file", r.Name, "reason", r.Err.Error())
	}
	return bad
}

// Package blob resolves video files stored in S3 to playable URLs.
package blob

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/folio/internal/xerrors"
)

const (
	DefaultURLTTL = 15 * time.Minute
	listMaxKeys   = 10
)

// Lookup results reported to VideoMetrics.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// ObjectLister is the part of *s3.Client used for prefix lookups.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner is satisfied by *s3.PresignClient.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type VideoMetrics interface {
	IncVideoLookup(result string)
}

type S3VideosOptions struct {
	Client ObjectLister
	// Presigner is required unless PublicBaseURL is set.
	Presigner Presigner

	Bucket string
	Prefix string

	// PublicBaseURL serves objects through a CDN instead of presigned URLs.
	PublicBaseURL string
	URLTTL        time.Duration

	Metrics VideoMetrics
}

type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type S3Videos struct {
	client    ObjectLister
	presigner Presigner
	bucket    string
	prefix    string
	publicURL string
	ttl       time.Duration
	metrics   VideoMetrics
}

func NewS3Videos(opts S3VideosOptions) (*S3Videos, error) {
	if opts.Client == nil {
		return nil, xerrors.New("s3 videos: Client is required")
	}
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, xerrors.New("s3 videos: Bucket is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if base == "" && opts.Presigner == nil {
		return nil, xerrors.New("s3 videos: Presigner or PublicBaseURL is required")
	}
	ttl := opts.URLTTL
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &S3Videos{
		client:    opts.Client,
		presigner: opts.Presigner,
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		publicURL: base,
		ttl:       ttl,
		metrics:   opts.Metrics,
	}, nil
}

// FindByPrefix returns the first object whose key starts with the
// configured prefix followed by name.
func (v *S3Videos) FindByPrefix(ctx context.Context, name string) (Object, bool, error) {
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return Object{}, false, xerrors.E(xerrors.KindValidation, "file name is required")
	}
	out, err := v.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(v.bucket),
		Prefix:  aws.String(v.prefix + name),
		MaxKeys: aws.Int32(listMaxKeys),
	})
	if err != nil {
		return Object{}, false, xerrors.Wrapf(err, "list s3://%s/%s%s", v.bucket, v.prefix, name)
	}
	for _, o := range out.Contents {
		if o.Key == nil || *o.Key == "" {
			continue
		}
		obj := Object{Key: *o.Key, Size: aws.ToInt64(o.Size)}
		if o.LastModified != nil {
			obj.LastModified = *o.LastModified
		}
		return obj, true, nil
	}
	return Object{}, false, nil
}

// URL returns a URL the browser can fetch key from.
func (v *S3Videos) URL(ctx context.Context, key string) (string, error) {
	if v.publicURL != "" {
		return v.publicURL + "/" + escapeKey(key), nil
	}
	req, err := v.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(v.ttl))
	if err != nil {
		return "", xerrors.Wrapf(err, "presign s3://%s/%s", v.bucket, key)
	}
	return req.URL, nil
}

// Lookup combines FindByPrefix and URL.
func (v *S3Videos) Lookup(ctx context.Context, name string) (string, bool, error) {
	obj, ok, err := v.FindByPrefix(ctx, name)
	if err != nil {
		v.record(ResultError)
		return "", false, err
	}
	if !ok {
		v.record(ResultNotFound)
		return "", false, nil
	}
	u, err := v.URL(ctx, obj.Key)
	if err != nil {
		v.record(ResultError)
		return "", false, err
	}
	v.record(ResultFound)
	return u, true, nil
}

func (v *S3Videos) record(result string) {
	if v.metrics != nil {
		v.metrics.IncVideoLookup(result)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

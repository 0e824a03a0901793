package cryptoutil

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/folio/internal/xerrors"
)

// SSMParameterGetter is the subset of the SSM API needed to read a parameter.
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// FetchSecretParameter reads and decrypts a SecureString parameter.
// Surrounding whitespace is trimmed; an empty value is an error.
func FetchSecretParameter(ctx context.Context, client SSMParameterGetter, name string) ([]byte, error) {
	if client == nil {
		return nil, xerrors.New("ssm client is not configured")
	}
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, xerrors.Newf("SSM parameter %s has no value", name)
	}
	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return nil, xerrors.Newf("SSM parameter %s is empty", name)
	}
	return []byte(v), nil
}

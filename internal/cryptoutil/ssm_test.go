package cryptoutil

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	value *string
	err   error
	in    *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: f.value}}, nil
}

func TestFetchSecretParameter(t *testing.T) {
	f := &fakeSSM{value: aws.String("  s3cret\n")}
	got, err := FetchSecretParameter(t.Context(), f, "/folio/jwt")
	if err != nil {
		t.Fatalf("FetchSecretParameter: %v", err)
	}
	if string(got) != "s3cret" {
		t.Fatalf("got %q", got)
	}
	if !aws.ToBool(f.in.WithDecryption) || aws.ToString(f.in.Name) != "/folio/jwt" {
		t.Fatalf("unexpected input: %+v", f.in)
	}
}

func TestFetchSecretParameter_Errors(t *testing.T) {
	cases := map[string]SSMParameterGetter{
		"api error": &fakeSSM{err: errors.New("throttled")},
		"nil value": &fakeSSM{},
		"blank":     &fakeSSM{value: aws.String("   ")},
		"no client": nil,
	}
	for name, c := range cases {
		if _, err := FetchSecretParameter(t.Context(), c, "/p"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

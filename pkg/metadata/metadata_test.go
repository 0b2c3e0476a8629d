package metadata

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

type fakeIMDS struct {
	content string
	err     error
	path    string
}

func (f *fakeIMDS) GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	f.path = params.Path
	if f.err != nil {
		return nil, f.err
	}
	return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader(f.content))}, nil
}

func TestPublicAddress(t *testing.T) {
	api := &fakeIMDS{content: "203.0.113.7\n"}
	c := NewWithAPI(api)

	if got := c.PublicAddress(context.Background()); got != "203.0.113.7" {
		t.Errorf("PublicAddress = %q", got)
	}
	if api.path != "public-ipv4" {
		t.Errorf("queried path %q", api.path)
	}
}

func TestPublicAddressLookupFailureUsesPlaceholder(t *testing.T) {
	c := NewWithAPI(&fakeIMDS{err: errors.New("no metadata service")})

	if got := c.PublicAddress(context.Background()); got != LoopbackPlaceholder {
		t.Errorf("PublicAddress = %q, want %q", got, LoopbackPlaceholder)
	}
}

func TestPublicAddressEmptyResponseUsesPlaceholder(t *testing.T) {
	c := NewWithAPI(&fakeIMDS{content: "\n"})

	if got := c.PublicAddress(context.Background()); got != LoopbackPlaceholder {
		t.Errorf("PublicAddress = %q, want %q", got, LoopbackPlaceholder)
	}
}

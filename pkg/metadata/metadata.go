// Package metadata looks up host facts from the cloud metadata service.
package metadata

import (
	"context"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/rs/zerolog"
)

// LoopbackPlaceholder is substituted when the metadata service is
// unreachable, so rendered URLs are always well-formed.
const LoopbackPlaceholder = "127.0.0.1"

// imdsAPI is the subset of the IMDS client used here.
type imdsAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// Client resolves instance metadata. The SDK client performs the two-step
// token-based (IMDSv2) exchange internally.
type Client struct {
	api imdsAPI
}

// New creates a metadata Client from the ambient AWS configuration.
func New(ctx context.Context) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{api: imds.NewFromConfig(cfg)}, nil
}

// NewWithAPI creates a Client around an existing IMDS client.
func NewWithAPI(api imdsAPI) *Client {
	return &Client{api: api}
}

// PublicAddress returns the instance's public IPv4 address. Lookup failure
// is never an error: it logs a warning and returns the loopback placeholder.
func (c *Client) PublicAddress(ctx context.Context) string {
	out, err := c.api.GetMetadata(ctx, &imds.GetMetadataInput{Path: "public-ipv4"})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("metadata lookup failed, using loopback placeholder")
		return LoopbackPlaceholder
	}
	defer out.Content.Close()

	b, err := io.ReadAll(out.Content)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("metadata read failed, using loopback placeholder")
		return LoopbackPlaceholder
	}

	addr := strings.TrimSpace(string(b))
	if addr == "" {
		return LoopbackPlaceholder
	}
	return addr
}

package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the subset of the SSM client the source uses.
type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource fetches parameters from AWS Systems Manager Parameter Store.
type SSMSource struct {
	client ssmAPI
}

// NewSSMSource creates an SSMSource from the ambient AWS configuration
// (instance profile credentials on a provisioned VM).
func NewSSMSource(ctx context.Context) (*SSMSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SSMSource{client: ssm.NewFromConfig(cfg)}, nil
}

// NewSSMSourceWithClient creates an SSMSource around an existing client.
func NewSSMSourceWithClient(client ssmAPI) *SSMSource {
	return &SSMSource{client: client}
}

// Fetch implements Source.
func (s *SSMSource) Fetch(ctx context.Context, paramPath string, decrypt bool) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramPath),
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", paramPath, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("get parameter %s: empty response", paramPath)
	}
	return *out.Parameter.Value, nil
}

package aws

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/cloudstrap-io/cloudstrap/internal/config"
	"github.com/cloudstrap-io/cloudstrap/internal/logging"
)

// Provider implements engine.CloudAPI against AWS, one region at a time.
type Provider struct {
	cfg *config.Config

	ec2Client *ec2.Client
	s3Client  *s3.Client
	ssmClient *ssm.Client
	stsClient *sts.Client
}

// New loads the default AWS credential chain for the configured region and
// builds the service clients.
func New(ctx context.Context, cfg *config.Config) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	return &Provider{
		cfg:       cfg,
		ec2Client: ec2.NewFromConfig(awsCfg),
		s3Client:  s3.NewFromConfig(awsCfg),
		ssmClient: ssm.NewFromConfig(awsCfg),
		stsClient: sts.NewFromConfig(awsCfg),
	}, nil
}

// Preflight verifies credentials and region reachability before any
// resource work. A failure here is fatal to the whole run.
func (p *Provider) Preflight(ctx context.Context) error {
	resp, err := p.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("AWS credentials check failed: %w", err)
	}
	logging.Debug("preflight ok", "account", *resp.Account, "arn", *resp.Arn)
	return nil
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func int32Ptr(i int32) *int32 { return &i }

// isAPIError reports whether err carries one of the given AWS error codes.
func isAPIError(err error, codes ...string) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	for _, code := range codes {
		if ae.ErrorCode() == code {
			return true
		}
	}
	return false
}

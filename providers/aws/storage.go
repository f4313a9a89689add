package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
)

// CreateBucket creates the object storage bucket. Bucket names are global,
// so a bucket we already own counts as created.
func (p *Provider) CreateBucket(ctx context.Context) (engine.BucketResult, error) {
	input := &s3.CreateBucketInput{
		Bucket: &p.cfg.BucketName,
	}
	// us-east-1 rejects an explicit location constraint.
	if p.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(p.cfg.Region),
		}
	}

	_, err := p.s3Client.CreateBucket(ctx, input)
	if err != nil && !isAPIError(err, "BucketAlreadyOwnedByYou") {
		return engine.BucketResult{}, fmt.Errorf("failed to create bucket %s: %w", p.cfg.BucketName, err)
	}

	return engine.BucketResult{
		Name: p.cfg.BucketName,
		URL:  bucketURL(p.cfg.BucketName, p.cfg.Region),
	}, nil
}

// DeleteBucket deletes the bucket. It must already be empty; a bucket that
// is already gone counts as deleted.
func (p *Provider) DeleteBucket(ctx context.Context, name string) error {
	_, err := p.s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: &name})
	if err != nil && !isAPIError(err, "NoSuchBucket") {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	return nil
}

func bucketURL(name, region string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", name, region)
}

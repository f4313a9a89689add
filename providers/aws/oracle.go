package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloudstrap-io/cloudstrap/internal/resource"
)

// Exists asks the provider's read API whether the identifier still refers
// to a live entity. It deliberately never consults the local state store,
// so a stale record can never produce a false positive.
func (p *Provider) Exists(ctx context.Context, kind resource.Kind, id string) (bool, error) {
	switch kind {
	case resource.Network:
		_, err := p.ec2Client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{id}})
		return presence(err, "InvalidVpcID.NotFound")

	case resource.Gateway:
		_, err := p.ec2Client.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
			InternetGatewayIds: []string{id},
		})
		return presence(err, "InvalidInternetGatewayID.NotFound")

	case resource.PublicSubnet, resource.PrivateSubnet:
		_, err := p.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{SubnetIds: []string{id}})
		return presence(err, "InvalidSubnetID.NotFound")

	case resource.RouteTable:
		resp, err := p.ec2Client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
			RouteTableIds: []string{id},
		})
		if err != nil {
			return presence(err, "InvalidRouteTableID.NotFound")
		}
		return len(resp.RouteTables) > 0, nil

	case resource.SecurityGroup:
		_, err := p.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
			GroupIds: []string{id},
		})
		return presence(err, "InvalidGroup.NotFound", "InvalidGroupId.Malformed")

	case resource.KeyPair:
		_, err := p.ec2Client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{KeyNames: []string{id}})
		return presence(err, "InvalidKeyPair.NotFound")

	case resource.Instance:
		inst, err := p.describeInstance(ctx, id)
		if err != nil {
			return presence(err, "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed")
		}
		if inst == nil {
			return false, nil
		}
		switch inst.State.Name {
		case ec2types.InstanceStateNameTerminated, ec2types.InstanceStateNameShuttingDown:
			return false, nil
		}
		return true, nil

	case resource.Bucket:
		_, err := p.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &id})
		return presence(err, "NotFound", "NoSuchBucket")
	}

	return false, fmt.Errorf("existence check not implemented for kind %s", kind)
}

// InstanceStatus returns the provider-reported instance state name.
func (p *Provider) InstanceStatus(ctx context.Context, id string) (string, error) {
	inst, err := p.describeInstance(ctx, id)
	if err != nil {
		if isAPIError(err, "InvalidInstanceID.NotFound") {
			return "terminated", nil
		}
		return "", fmt.Errorf("failed to describe instance %s: %w", id, err)
	}
	if inst == nil {
		return "terminated", nil
	}
	return string(inst.State.Name), nil
}

func (p *Provider) describeInstance(ctx context.Context, id string) (*ec2types.Instance, error) {
	resp, err := p.ec2Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Reservations) == 0 || len(resp.Reservations[0].Instances) == 0 {
		return nil, nil
	}
	return &resp.Reservations[0].Instances[0], nil
}

// presence maps a read-API result to Present/Absent: nil error is Present,
// one of the not-found codes is Absent, anything else propagates.
func presence(err error, notFoundCodes ...string) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isAPIError(err, notFoundCodes...) {
		return false, nil
	}
	return false, err
}

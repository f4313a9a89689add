package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
	"github.com/cloudstrap-io/cloudstrap/internal/logging"
)

// CreateNetwork creates the VPC, tags it, and enables DNS support and
// hostnames. A failing follow-up call leaves the VPC in place; the created
// identifier is logged so manual cleanup is possible.
func (p *Provider) CreateNetwork(ctx context.Context) (string, error) {
	resp, err := p.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: strPtr(p.cfg.VpcCIDR),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create VPC: %w", err)
	}
	vpcID := *resp.Vpc.VpcId

	p.tag(ctx, vpcID, p.cfg.Name+"-vpc")

	for _, attr := range []ec2.ModifyVpcAttributeInput{
		{VpcId: &vpcID, EnableDnsSupport: &ec2types.AttributeBooleanValue{Value: boolPtr(true)}},
		{VpcId: &vpcID, EnableDnsHostnames: &ec2types.AttributeBooleanValue{Value: boolPtr(true)}},
	} {
		if _, err := p.ec2Client.ModifyVpcAttribute(ctx, &attr); err != nil {
			logging.Error("VPC created but attribute change failed", "vpc", vpcID, "error", err)
			return "", fmt.Errorf("failed to set attributes on VPC %s: %w", vpcID, err)
		}
	}

	return vpcID, nil
}

func (p *Provider) DeleteNetwork(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: &id})
	if err != nil {
		return fmt.Errorf("failed to delete VPC %s: %w", id, err)
	}
	return nil
}

// CreateGateway creates an internet gateway and attaches it to the network.
func (p *Provider) CreateGateway(ctx context.Context, networkID string) (string, error) {
	resp, err := p.ec2Client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{})
	if err != nil {
		return "", fmt.Errorf("failed to create internet gateway: %w", err)
	}
	igwID := *resp.InternetGateway.InternetGatewayId

	if _, err := p.ec2Client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: &igwID,
		VpcId:             &networkID,
	}); err != nil {
		logging.Error("gateway created but attach failed", "gateway", igwID, "error", err)
		return "", fmt.Errorf("failed to attach gateway %s to %s: %w", igwID, networkID, err)
	}

	p.tag(ctx, igwID, p.cfg.Name+"-igw")
	return igwID, nil
}

// DeleteGateway detaches the gateway from the network before deleting it.
// With no recorded network the detach is skipped.
func (p *Provider) DeleteGateway(ctx context.Context, id, networkID string) error {
	if networkID != "" {
		_, err := p.ec2Client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
			InternetGatewayId: &id,
			VpcId:             &networkID,
		})
		if err != nil && !isAPIError(err, "Gateway.NotAttached") {
			return fmt.Errorf("failed to detach gateway %s: %w", id, err)
		}
	}

	_, err := p.ec2Client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: &id,
	})
	if err != nil {
		return fmt.Errorf("failed to delete gateway %s: %w", id, err)
	}
	return nil
}

// CreateSubnet creates the public or private subnet. The public subnet gets
// auto-assigned public addresses.
func (p *Provider) CreateSubnet(ctx context.Context, networkID string, public bool) (string, error) {
	cidr, suffix := p.cfg.PrivateSubnetCIDR, "-private"
	if public {
		cidr, suffix = p.cfg.PublicSubnetCIDR, "-public"
	}

	input := &ec2.CreateSubnetInput{
		VpcId:     &networkID,
		CidrBlock: &cidr,
	}
	if p.cfg.AvailabilityZone != "" {
		input.AvailabilityZone = &p.cfg.AvailabilityZone
	}

	resp, err := p.ec2Client.CreateSubnet(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create subnet %s: %w", cidr, err)
	}
	subnetID := *resp.Subnet.SubnetId

	p.tag(ctx, subnetID, p.cfg.Name+suffix)

	if public {
		if _, err := p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            &subnetID,
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: boolPtr(true)},
		}); err != nil {
			logging.Error("subnet created but attribute change failed", "subnet", subnetID, "error", err)
			return "", fmt.Errorf("failed to enable public addressing on %s: %w", subnetID, err)
		}
	}

	return subnetID, nil
}

func (p *Provider) DeleteSubnet(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: &id})
	if err != nil {
		return fmt.Errorf("failed to delete subnet %s: %w", id, err)
	}
	return nil
}

// CreateRouteTable creates the route table, adds the default route through
// the gateway, and associates the public subnet. The association identifier
// is returned alongside the table's so teardown can disassociate first.
func (p *Provider) CreateRouteTable(ctx context.Context, networkID, gatewayID, subnetID string) (engine.RouteTableResult, error) {
	resp, err := p.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{VpcId: &networkID})
	if err != nil {
		return engine.RouteTableResult{}, fmt.Errorf("failed to create route table: %w", err)
	}
	rtID := *resp.RouteTable.RouteTableId

	p.tag(ctx, rtID, p.cfg.Name+"-rt")

	if _, err := p.ec2Client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         &rtID,
		DestinationCidrBlock: strPtr("0.0.0.0/0"),
		GatewayId:            &gatewayID,
	}); err != nil {
		logging.Error("route table created but default route failed", "routeTable", rtID, "error", err)
		return engine.RouteTableResult{}, fmt.Errorf("failed to add default route to %s: %w", rtID, err)
	}

	assoc, err := p.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: &rtID,
		SubnetId:     &subnetID,
	})
	if err != nil {
		logging.Error("route table created but association failed", "routeTable", rtID, "error", err)
		return engine.RouteTableResult{}, fmt.Errorf("failed to associate %s with subnet %s: %w", rtID, subnetID, err)
	}

	return engine.RouteTableResult{ID: rtID, AssociationID: *assoc.AssociationId}, nil
}

// DeleteRouteTable disassociates the subnet association before deleting.
func (p *Provider) DeleteRouteTable(ctx context.Context, id, associationID string) error {
	if associationID != "" {
		_, err := p.ec2Client.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{
			AssociationId: &associationID,
		})
		if err != nil && !isAPIError(err, "InvalidAssociationID.NotFound") {
			return fmt.Errorf("failed to disassociate %s: %w", associationID, err)
		}
	}

	_, err := p.ec2Client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: &id})
	if err != nil {
		return fmt.Errorf("failed to delete route table %s: %w", id, err)
	}
	return nil
}

// CreateSecurityGroup creates the group and authorizes ingress for the
// configured ports from anywhere.
func (p *Provider) CreateSecurityGroup(ctx context.Context, networkID string) (string, error) {
	resp, err := p.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   strPtr(p.cfg.Name + "-sg"),
		Description: strPtr("managed by cloudstrap"),
		VpcId:       &networkID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create security group: %w", err)
	}
	groupID := *resp.GroupId

	var perms []ec2types.IpPermission
	for _, port := range p.cfg.IngressPorts {
		perms = append(perms, ec2types.IpPermission{
			IpProtocol: strPtr("tcp"),
			FromPort:   int32Ptr(int32(port)),
			ToPort:     int32Ptr(int32(port)),
			IpRanges:   []ec2types.IpRange{{CidrIp: strPtr("0.0.0.0/0")}},
		})
	}
	if len(perms) > 0 {
		if _, err := p.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       &groupID,
			IpPermissions: perms,
		}); err != nil {
			logging.Error("security group created but ingress rules failed", "group", groupID, "error", err)
			return "", fmt.Errorf("failed to authorize ingress on %s: %w", groupID, err)
		}
	}

	return groupID, nil
}

func (p *Provider) DeleteSecurityGroup(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: &id})
	if err != nil {
		return fmt.Errorf("failed to delete security group %s: %w", id, err)
	}
	return nil
}

// tag applies the configured tags plus a Name tag. Tagging failures are
// logged, not fatal.
func (p *Provider) tag(ctx context.Context, id, name string) {
	tags := []ec2types.Tag{{Key: strPtr("Name"), Value: &name}}
	for k, v := range p.cfg.Tags {
		tags = append(tags, ec2types.Tag{Key: strPtr(k), Value: strPtr(v)})
	}
	if _, err := p.ec2Client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{id},
		Tags:      tags,
	}); err != nil {
		logging.Warn("failed to tag resource", "id", id, "error", err)
	}
}

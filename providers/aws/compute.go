package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
	"github.com/cloudstrap-io/cloudstrap/internal/logging"
)

const instanceWaitTimeout = 5 * time.Minute

// CreateKeyPair imports the configured public key, or has the provider
// generate a key pair when none is configured. Generated private key
// material is written next to the state file, mode 0600.
func (p *Provider) CreateKeyPair(ctx context.Context) (string, error) {
	name := p.cfg.Name + "-key"

	if p.cfg.PublicKeyPath != "" {
		material, err := os.ReadFile(p.cfg.PublicKeyPath)
		if err != nil {
			return "", fmt.Errorf("failed to read public key %s: %w", p.cfg.PublicKeyPath, err)
		}
		resp, err := p.ec2Client.ImportKeyPair(ctx, &ec2.ImportKeyPairInput{
			KeyName:           &name,
			PublicKeyMaterial: material,
		})
		if err != nil {
			return "", fmt.Errorf("failed to import key pair: %w", err)
		}
		return *resp.KeyName, nil
	}

	resp, err := p.ec2Client.CreateKeyPair(ctx, &ec2.CreateKeyPairInput{KeyName: &name})
	if err != nil {
		return "", fmt.Errorf("failed to create key pair: %w", err)
	}

	pemPath := filepath.Join(filepath.Dir(p.cfg.StateFile), name+".pem")
	if err := os.WriteFile(pemPath, []byte(*resp.KeyMaterial), 0600); err != nil {
		logging.Error("key pair created but private key could not be saved", "key", name, "error", err)
		return "", fmt.Errorf("failed to save private key to %s: %w", pemPath, err)
	}
	logging.Info("private key saved", "path", pemPath)

	return *resp.KeyName, nil
}

func (p *Provider) DeleteKeyPair(ctx context.Context, name string) error {
	_, err := p.ec2Client.DeleteKeyPair(ctx, &ec2.DeleteKeyPairInput{KeyName: &name})
	if err != nil {
		return fmt.Errorf("failed to delete key pair %s: %w", name, err)
	}
	return nil
}

// LaunchInstance runs one instance in the public subnet, waits until the
// provider reports it running, tags it, and reads back its public address.
func (p *Provider) LaunchInstance(ctx context.Context, in engine.InstanceInputs) (engine.InstanceResult, error) {
	imageID, err := p.resolveImage(ctx)
	if err != nil {
		return engine.InstanceResult{}, err
	}

	runInput := &ec2.RunInstancesInput{
		ImageId:          &imageID,
		InstanceType:     ec2types.InstanceType(p.cfg.InstanceType),
		KeyName:          &in.KeyName,
		SecurityGroupIds: []string{in.SecurityGroupID},
		SubnetId:         &in.SubnetID,
		MinCount:         int32Ptr(1),
		MaxCount:         int32Ptr(1),
	}

	if p.cfg.BootstrapTemplate != "" {
		userData, err := renderBootstrap(p.cfg.BootstrapTemplate, map[string]string{
			"region": p.cfg.Region,
			"name":   p.cfg.Name,
			"bucket": p.cfg.BucketName,
		})
		if err != nil {
			return engine.InstanceResult{}, err
		}
		runInput.UserData = strPtr(base64.StdEncoding.EncodeToString([]byte(userData)))
	}

	resp, err := p.ec2Client.RunInstances(ctx, runInput)
	if err != nil {
		return engine.InstanceResult{}, fmt.Errorf("failed to run instance: %w", err)
	}
	if len(resp.Instances) == 0 {
		return engine.InstanceResult{}, fmt.Errorf("no instance returned from run request")
	}
	instanceID := *resp.Instances[0].InstanceId

	waiter := ec2.NewInstanceRunningWaiter(p.ec2Client)
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	}, instanceWaitTimeout); err != nil {
		logging.Error("instance launched but did not reach running state", "instance", instanceID, "error", err)
		return engine.InstanceResult{}, fmt.Errorf("instance %s did not reach running state: %w", instanceID, err)
	}

	p.tag(ctx, instanceID, p.cfg.Name+"-instance")

	result := engine.InstanceResult{ID: instanceID}
	if inst, err := p.describeInstance(ctx, instanceID); err == nil && inst != nil && inst.PublicIpAddress != nil {
		result.PublicIP = *inst.PublicIpAddress
	}
	return result, nil
}

// TerminateInstance terminates and waits for the terminated state so the
// dependent network resources can be deleted right after.
func (p *Provider) TerminateInstance(ctx context.Context, id string) error {
	_, err := p.ec2Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Errorf("failed to terminate instance %s: %w", id, err)
	}

	waiter := ec2.NewInstanceTerminatedWaiter(p.ec2Client)
	if err := waiter.Wait(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	}, instanceWaitTimeout); err != nil {
		return fmt.Errorf("instance %s did not reach terminated state: %w", id, err)
	}
	return nil
}

// resolveImage turns an SSM parameter path into a concrete image id;
// anything else is taken as a literal image id.
func (p *Provider) resolveImage(ctx context.Context) (string, error) {
	if !strings.HasPrefix(p.cfg.AMI, "/") {
		return p.cfg.AMI, nil
	}

	resp, err := p.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{Name: &p.cfg.AMI})
	if err != nil {
		return "", fmt.Errorf("failed to resolve image parameter %s: %w", p.cfg.AMI, err)
	}
	imageID := *resp.Parameter.Value
	logging.Debug("resolved image", "parameter", p.cfg.AMI, "image", imageID)
	return imageID, nil
}

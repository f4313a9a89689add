package config

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the single explicit configuration record for a deployment. It is
// constructed once by the CLI and passed by parameter into every component.
type Config struct {
	Region            string            `yaml:"region"`
	Name              string            `yaml:"name"`
	VpcCIDR           string            `yaml:"vpcCidr"`
	PublicSubnetCIDR  string            `yaml:"publicSubnetCidr"`
	PrivateSubnetCIDR string            `yaml:"privateSubnetCidr"`
	AvailabilityZone  string            `yaml:"availabilityZone"`
	InstanceType      string            `yaml:"instanceType"`
	AMI               string            `yaml:"ami"`
	PublicKeyPath     string            `yaml:"publicKeyPath"`
	BucketName        string            `yaml:"bucketName"`
	IngressPorts      []int             `yaml:"ingressPorts"`
	Tags              map[string]string `yaml:"tags"`
	BootstrapTemplate string            `yaml:"bootstrapTemplate"`
	StateFile         string            `yaml:"stateFile"`
	LogFile           string            `yaml:"logFile"`
}

// DefaultPath is where Load looks when no --config flag is given.
const DefaultPath = "cloudstrap.yaml"

// amazonLinuxParam is the SSM public parameter resolved when no AMI is
// configured.
const amazonLinuxParam = "/aws/service/ami-amazon-linux-latest/al2023-ami-kernel-default-x86_64"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Region:            "us-east-1",
		Name:              "cloudstrap",
		VpcCIDR:           "10.0.0.0/16",
		PublicSubnetCIDR:  "10.0.1.0/24",
		PrivateSubnetCIDR: "10.0.2.0/24",
		InstanceType:      "t3.micro",
		AMI:               amazonLinuxParam,
		IngressPorts:      []int{22},
		StateFile:         ".cloudstrap/state.env",
		LogFile:           ".cloudstrap/cloudstrap.log",
	}
}

// Load reads the YAML file at path over the defaults. A missing file at the
// default path yields the defaults; an explicitly named missing file is an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the record before any provider work happens.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}

	vpc, err := netip.ParsePrefix(c.VpcCIDR)
	if err != nil {
		return fmt.Errorf("invalid vpcCidr %q: %w", c.VpcCIDR, err)
	}
	for field, cidr := range map[string]string{
		"publicSubnetCidr":  c.PublicSubnetCIDR,
		"privateSubnetCidr": c.PrivateSubnetCIDR,
	} {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, cidr, err)
		}
		if !vpc.Contains(p.Addr()) || p.Bits() < vpc.Bits() {
			return fmt.Errorf("%s %q is not inside vpcCidr %q", field, cidr, c.VpcCIDR)
		}
	}

	for _, port := range c.IngressPorts {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid ingress port %d", port)
		}
	}

	if c.InstanceType == "" {
		return fmt.Errorf("instanceType must not be empty")
	}
	if c.BucketName == "" {
		return fmt.Errorf("bucketName must not be empty")
	}

	// The bootstrap blob is opaque, but the template file must exist before
	// substitution is attempted.
	if c.BootstrapTemplate != "" {
		if _, err := os.Stat(c.BootstrapTemplate); err != nil {
			return fmt.Errorf("bootstrap template %s: %w", c.BootstrapTemplate, err)
		}
	}
	if c.PublicKeyPath != "" {
		if _, err := os.Stat(c.PublicKeyPath); err != nil {
			return fmt.Errorf("public key file %s: %w", c.PublicKeyPath, err)
		}
	}

	return nil
}

package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/viper"

	"github.com/shipmate-cli/shipmate/internal/deployment"
	"github.com/shipmate-cli/shipmate/internal/logging"
)

const (
	vpcCIDR      = "10.0.0.0/16"
	subnetCIDR   = "10.0.0.0/24"
	subnetZone   = "us-east-1a"
	asGroupLimit = 32
)

// Client provisions EC2 capacity for a deployment session.
type Client struct {
	ec2         *ec2.Client
	autoscaling *autoscaling.Client
	sts         *sts.Client
	debug       bool

	streamInterval time.Duration
	streamDuration time.Duration

	userLog func(string)

	vpcID    string
	subnetID string
}

// SetUserLog routes deploy progress and failures into the conversation. The
// process log keeps a copy of everything either way.
func (c *Client) SetUserLog(fn func(string)) {
	c.userLog = fn
}

func (c *Client) relay(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Info("%s", msg)
	if c.userLog != nil {
		c.userLog(msg)
	}
}

func (c *Client) relayError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Error("%s", msg)
	if c.userLog != nil {
		c.userLog(msg)
	}
}

// NewClient builds a provisioning client from the default AWS config chain.
// When aws.endpoint_url is configured, requests go to that endpoint with
// static test credentials so the agent can run against a local emulator.
func NewClient(ctx context.Context, debug bool) (*Client, error) {
	opts := []func(*config.LoadOptions) error{}
	endpoint := viper.GetString("aws.endpoint_url")
	if endpoint != "" {
		opts = append(opts,
			config.WithRegion(viper.GetString("aws.region")),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("test", "test", "")),
			config.WithBaseEndpoint(endpoint),
		)
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &Client{
		ec2:            ec2.NewFromConfig(cfg),
		autoscaling:    autoscaling.NewFromConfig(cfg),
		sts:            sts.NewFromConfig(cfg),
		debug:          debug,
		streamInterval: 5 * time.Second,
		streamDuration: 30 * time.Second,
	}, nil
}

// SubnetID returns the subnet EnsureNetwork created, or "" before it ran.
func (c *Client) SubnetID() string {
	return c.subnetID
}

// WhoAmI resolves the calling identity. Used as a session preflight; callers
// treat a failure as a warning, not a fatal error.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to resolve caller identity: %w", err)
	}
	return aws.ToString(out.Arn), nil
}

// EnsureNetwork creates the VPC and subnet deployments land in and records
// their IDs on the client. Calling it twice reuses the recorded IDs.
func (c *Client) EnsureNetwork(ctx context.Context) error {
	if c.subnetID != "" {
		return nil
	}
	vpc, err := c.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: aws.String(vpcCIDR),
	})
	if err != nil {
		return fmt.Errorf("failed to create VPC: %w", err)
	}
	c.vpcID = aws.ToString(vpc.Vpc.VpcId)

	subnet, err := c.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:            aws.String(c.vpcID),
		CidrBlock:        aws.String(subnetCIDR),
		AvailabilityZone: aws.String(subnetZone),
	})
	if err != nil {
		return fmt.Errorf("failed to create subnet: %w", err)
	}
	c.subnetID = aws.ToString(subnet.Subnet.SubnetId)
	logging.Info("network ready: vpc=%s subnet=%s", c.vpcID, c.subnetID)
	return nil
}

// Deploy launches the configured instances. It never returns an error: every
// outcome, failures included, is relayed as text to the user-facing sink and
// the process log, so a failed launch reads back in the conversation rather
// than aborting it. On success it reports the launched instance IDs, checks
// the state of the first one, and streams its console output.
func (c *Client) Deploy(ctx context.Context, inst deployment.InstanceConfig, scaling deployment.ScalingGroupConfig, autoscalingEnabled bool) {
	if err := c.EnsureNetwork(ctx); err != nil {
		c.relayError("deploy aborted: %v", err)
		return
	}

	var ids []string
	var err error
	if autoscalingEnabled {
		ids, err = c.deployAutoScaled(ctx, inst, scaling)
	} else {
		ids, err = c.deployDirect(ctx, inst)
	}
	if err != nil {
		c.relayError("deploy failed: %v", err)
		return
	}
	c.relay("deployed instances: %v", ids)
	if len(ids) > 0 {
		c.relay("instance %s state: %s", ids[0], c.VerifyInstance(ctx, ids[0]))
		c.StreamConsoleLogs(ctx, ids[0], c.streamInterval, c.streamDuration)
	}
}

func (c *Client) deployDirect(ctx context.Context, inst deployment.InstanceConfig) ([]string, error) {
	out, err := c.ec2.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:      aws.String(inst.ImageId),
		InstanceType: ec2types.InstanceType(inst.InstanceType),
		MinCount:     aws.Int32(int32(inst.MinCount)),
		MaxCount:     aws.Int32(int32(inst.MaxCount)),
		SubnetId:     aws.String(c.subnetID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch instances: %w", err)
	}
	ids := make([]string, 0, len(out.Instances))
	for _, i := range out.Instances {
		ids = append(ids, aws.ToString(i.InstanceId))
	}
	return ids, nil
}

func (c *Client) deployAutoScaled(ctx context.Context, inst deployment.InstanceConfig, scaling deployment.ScalingGroupConfig) ([]string, error) {
	_, err := c.ec2.CreateLaunchTemplate(ctx, &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(scaling.LaunchTemplateName),
		LaunchTemplateData: &ec2types.RequestLaunchTemplateData{
			ImageId:      aws.String(inst.ImageId),
			InstanceType: ec2types.InstanceType(inst.InstanceType),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create launch template: %w", err)
	}

	groupName := "ASG-" + scaling.LaunchTemplateName
	zoneIdentifier := scaling.VPCZoneIdentifier
	if c.subnetID != "" {
		zoneIdentifier = c.subnetID
	}
	_, err = c.autoscaling.CreateAutoScalingGroup(ctx, &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(groupName),
		MinSize:              aws.Int32(int32(scaling.MinSize)),
		MaxSize:              aws.Int32(int32(scaling.MaxSize)),
		DesiredCapacity:      aws.Int32(int32(scaling.DesiredCapacity)),
		VPCZoneIdentifier:    aws.String(zoneIdentifier),
		AvailabilityZones:    scaling.AvailabilityZones,
		LaunchTemplate: &astypes.LaunchTemplateSpecification{
			LaunchTemplateName: aws.String(scaling.LaunchTemplateName),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auto scaling group: %w", err)
	}

	out, err := c.autoscaling.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{groupName},
		MaxRecords:            aws.Int32(asGroupLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe auto scaling group: %w", err)
	}
	var ids []string
	for _, g := range out.AutoScalingGroups {
		for _, i := range g.Instances {
			ids = append(ids, aws.ToString(i.InstanceId))
		}
	}
	return ids, nil
}

// VerifyInstance reports the lifecycle state of a launched instance as text.
// Failures become text too so the dialogue can show them without aborting.
func (c *Client) VerifyInstance(ctx context.Context, id string) string {
	out, err := c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return fmt.Sprintf("failed to describe instance %s: %v", id, err)
	}
	for _, r := range out.Reservations {
		for _, i := range r.Instances {
			return string(i.State.Name)
		}
	}
	return fmt.Sprintf("instance %s not found", id)
}

// StreamConsoleLogs polls the console output of an instance every interval
// until duration elapses or ctx is done, relaying each snapshot to the log.
func (c *Client) StreamConsoleLogs(ctx context.Context, id string, interval, duration time.Duration) {
	deadline := time.Now().Add(duration)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		out, err := c.ec2.GetConsoleOutput(ctx, &ec2.GetConsoleOutputInput{
			InstanceId: aws.String(id),
		})
		if err != nil {
			c.relayError("console output for %s: %v", id, err)
		} else if out.Output != nil {
			c.relay("console output for %s:\n%s", id, aws.ToString(out.Output))
		} else {
			c.relay("console output for %s: not yet available", id)
		}
		if time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package ec2

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/O-deepcodee/AWS/pkg/awsclient"
	"github.com/O-deepcodee/AWS/pkg/config"
	"github.com/O-deepcodee/AWS/pkg/observability"
)

// API is the subset of the EC2 client used by Manager.
type API interface {
	DescribeInstances(ctx context.Context, params *awsec2.DescribeInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error)
	RunInstances(ctx context.Context, params *awsec2.RunInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.RunInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *awsec2.TerminateInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.TerminateInstancesOutput, error)
	StartInstances(ctx context.Context, params *awsec2.StartInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *awsec2.StopInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.StopInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *awsec2.DescribeInstanceStatusInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstanceStatusOutput, error)
	CreateTags(ctx context.Context, params *awsec2.CreateTagsInput, optFns ...func(*awsec2.Options)) (*awsec2.CreateTagsOutput, error)
	CreateSecurityGroup(ctx context.Context, params *awsec2.CreateSecurityGroupInput, optFns ...func(*awsec2.Options)) (*awsec2.CreateSecurityGroupOutput, error)
	CreateKeyPair(ctx context.Context, params *awsec2.CreateKeyPairInput, optFns ...func(*awsec2.Options)) (*awsec2.CreateKeyPairOutput, error)
}

// Instance is the reshaped view of one EC2 instance.
type Instance struct {
	InstanceID       string
	InstanceType     string
	ImageID          string
	State            string
	LaunchTime       time.Time
	PublicIPAddress  string
	PrivateIPAddress string
	Tags             map[string]string
}

// InstanceStatus is the reshaped view of an instance status check.
type InstanceStatus struct {
	InstanceID     string
	InstanceState  string
	SystemStatus   string
	InstanceStatus string
	Found          bool
}

// KeyPair is the reshaped view of a freshly created key pair. KeyMaterial is
// the private key and is only ever returned at creation time.
type KeyPair struct {
	KeyName        string
	KeyFingerprint string
	KeyMaterial    string
}

// CreateInstanceInput carries the launch parameters for a new instance.
type CreateInstanceInput struct {
	InstanceType   string
	ImageID        string
	KeyName        string
	SecurityGroups []string
	SubnetID       string
	UserData       string
	Tags           map[string]string
}

// Manager manages EC2 instances and related resources.
type Manager struct {
	api API
	cfg *config.Config
	log *observability.Logger
}

// New creates a manager backed by a real EC2 client built from cfg.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize EC2 client: %w", err)
	}
	return NewWithAPI(awsec2.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI creates a manager on top of an existing client, real or fake.
func NewWithAPI(api API, cfg *config.Config) *Manager {
	return &Manager{
		api: api,
		cfg: cfg,
		log: observability.FromConfig(cfg).WithField("service", "ec2"),
	}
}

// ListInstances lists EC2 instances, optionally constrained by describe
// filters (e.g. "instance-state-name" -> ["running"]).
func (m *Manager) ListInstances(ctx context.Context, filters map[string][]string) ([]Instance, error) {
	input := &awsec2.DescribeInstancesInput{}
	for name, values := range filters {
		input.Filters = append(input.Filters, types.Filter{
			Name:   aws.String(name),
			Values: values,
		})
	}

	out, err := m.api.DescribeInstances(ctx, input)
	if err != nil {
		m.log.WithError(err).Error("failed to list instances")
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var instances []Instance
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			instances = append(instances, reshapeInstance(inst))
		}
	}

	m.log.Infof("Found %d instances", len(instances))
	return instances, nil
}

// CreateInstance launches a single instance. An empty KeyName falls back to
// the configured ec2.key_pair_name; security groups attach as group IDs when
// a subnet is given (VPC launch) and as names otherwise.
func (m *Manager) CreateInstance(ctx context.Context, in CreateInstanceInput) (*Instance, error) {
	params := &awsec2.RunInstancesInput{
		ImageId:      aws.String(in.ImageID),
		InstanceType: types.InstanceType(in.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
	}

	keyName := in.KeyName
	if keyName == "" {
		keyName = m.cfg.GetString("ec2.key_pair_name", "")
	}
	if keyName != "" {
		params.KeyName = aws.String(keyName)
	}

	if len(in.SecurityGroups) > 0 {
		if in.SubnetID != "" {
			params.SecurityGroupIds = in.SecurityGroups
		} else {
			params.SecurityGroups = in.SecurityGroups
		}
	}
	if in.SubnetID != "" {
		params.SubnetId = aws.String(in.SubnetID)
	}
	if in.UserData != "" {
		params.UserData = aws.String(in.UserData)
	}

	out, err := m.api.RunInstances(ctx, params)
	if err != nil {
		m.log.WithError(err).Error("failed to create instance")
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}
	if len(out.Instances) == 0 {
		return nil, fmt.Errorf("failed to create instance: no instance in response")
	}

	instance := reshapeInstance(out.Instances[0])
	m.log.Infof("Created instance: %s", instance.InstanceID)

	if len(in.Tags) > 0 {
		if err := m.AddTags(ctx, instance.InstanceID, in.Tags); err != nil {
			return nil, err
		}
		instance.Tags = in.Tags
	}

	return &instance, nil
}

// TerminateInstance terminates an instance.
func (m *Manager) TerminateInstance(ctx context.Context, instanceID string) error {
	_, err := m.api.TerminateInstances(ctx, &awsec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to terminate instance %s", instanceID)
		return fmt.Errorf("failed to terminate instance %s: %w", instanceID, err)
	}

	m.log.Infof("Terminated instance: %s", instanceID)
	return nil
}

// StartInstance starts a stopped instance.
func (m *Manager) StartInstance(ctx context.Context, instanceID string) error {
	_, err := m.api.StartInstances(ctx, &awsec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to start instance %s", instanceID)
		return fmt.Errorf("failed to start instance %s: %w", instanceID, err)
	}

	m.log.Infof("Started instance: %s", instanceID)
	return nil
}

// StopInstance stops a running instance.
func (m *Manager) StopInstance(ctx context.Context, instanceID string) error {
	_, err := m.api.StopInstances(ctx, &awsec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to stop instance %s", instanceID)
		return fmt.Errorf("failed to stop instance %s: %w", instanceID, err)
	}

	m.log.Infof("Stopped instance: %s", instanceID)
	return nil
}

// GetInstanceStatus returns status checks for an instance. An unknown
// instance yields Found=false rather than an error.
func (m *Manager) GetInstanceStatus(ctx context.Context, instanceID string) (*InstanceStatus, error) {
	out, err := m.api.DescribeInstanceStatus(ctx, &awsec2.DescribeInstanceStatusInput{
		InstanceIds:         []string{instanceID},
		IncludeAllInstances: aws.Bool(true),
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to get instance status %s", instanceID)
		return nil, fmt.Errorf("failed to get instance status %s: %w", instanceID, err)
	}

	if len(out.InstanceStatuses) == 0 {
		return &InstanceStatus{InstanceID: instanceID}, nil
	}

	status := out.InstanceStatuses[0]
	result := &InstanceStatus{
		InstanceID: aws.ToString(status.InstanceId),
		Found:      true,
	}
	if status.InstanceState != nil {
		result.InstanceState = string(status.InstanceState.Name)
	}
	if status.SystemStatus != nil {
		result.SystemStatus = string(status.SystemStatus.Status)
	}
	if status.InstanceStatus != nil {
		result.InstanceStatus = string(status.InstanceStatus.Status)
	}
	return result, nil
}

// AddTags adds tags to an instance.
func (m *Manager) AddTags(ctx context.Context, instanceID string, tags map[string]string) error {
	tagList := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		tagList = append(tagList, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	_, err := m.api.CreateTags(ctx, &awsec2.CreateTagsInput{
		Resources: []string{instanceID},
		Tags:      tagList,
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to add tags to instance %s", instanceID)
		return fmt.Errorf("failed to add tags to instance %s: %w", instanceID, err)
	}

	m.log.Infof("Added tags to instance %s", instanceID)
	return nil
}

// CreateSecurityGroup creates a security group, in a VPC when vpcID is set.
func (m *Manager) CreateSecurityGroup(ctx context.Context, groupName, description, vpcID string) (string, error) {
	input := &awsec2.CreateSecurityGroupInput{
		GroupName:   aws.String(groupName),
		Description: aws.String(description),
	}
	if vpcID != "" {
		input.VpcId = aws.String(vpcID)
	}

	out, err := m.api.CreateSecurityGroup(ctx, input)
	if err != nil {
		m.log.WithError(err).Error("failed to create security group")
		return "", fmt.Errorf("failed to create security group: %w", err)
	}

	groupID := aws.ToString(out.GroupId)
	m.log.Infof("Created security group: %s", groupID)
	return groupID, nil
}

// CreateKeyPair creates a key pair and, when savePath is set, writes the
// private key there with owner-only permissions.
func (m *Manager) CreateKeyPair(ctx context.Context, keyName, savePath string) (*KeyPair, error) {
	out, err := m.api.CreateKeyPair(ctx, &awsec2.CreateKeyPairInput{
		KeyName: aws.String(keyName),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to create key pair")
		return nil, fmt.Errorf("failed to create key pair: %w", err)
	}

	keyPair := &KeyPair{
		KeyName:        aws.ToString(out.KeyName),
		KeyFingerprint: aws.ToString(out.KeyFingerprint),
		KeyMaterial:    aws.ToString(out.KeyMaterial),
	}

	if savePath != "" {
		if err := os.WriteFile(savePath, []byte(keyPair.KeyMaterial), 0o600); err != nil {
			return nil, fmt.Errorf("failed to save private key: %w", err)
		}
		m.log.Infof("Saved private key to: %s", savePath)
	}

	m.log.Infof("Created key pair: %s", keyName)
	return keyPair, nil
}

// reshapeInstance flattens one SDK instance into the toolkit view.
func reshapeInstance(inst types.Instance) Instance {
	tags := make(map[string]string, len(inst.Tags))
	for _, tag := range inst.Tags {
		tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}

	instance := Instance{
		InstanceID:       aws.ToString(inst.InstanceId),
		InstanceType:     string(inst.InstanceType),
		ImageID:          aws.ToString(inst.ImageId),
		LaunchTime:       aws.ToTime(inst.LaunchTime),
		PublicIPAddress:  aws.ToString(inst.PublicIpAddress),
		PrivateIPAddress: aws.ToString(inst.PrivateIpAddress),
		Tags:             tags,
	}
	if inst.State != nil {
		instance.State = string(inst.State.Name)
	}
	return instance
}

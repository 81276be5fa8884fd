package rds

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsrds "github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/O-deepcodee/AWS/pkg/awsclient"
	"github.com/O-deepcodee/AWS/pkg/config"
	"github.com/O-deepcodee/AWS/pkg/observability"
)

// API is the subset of the RDS client used by Manager.
type API interface {
	DescribeDBInstances(ctx context.Context, params *awsrds.DescribeDBInstancesInput, optFns ...func(*awsrds.Options)) (*awsrds.DescribeDBInstancesOutput, error)
	CreateDBInstance(ctx context.Context, params *awsrds.CreateDBInstanceInput, optFns ...func(*awsrds.Options)) (*awsrds.CreateDBInstanceOutput, error)
	DeleteDBInstance(ctx context.Context, params *awsrds.DeleteDBInstanceInput, optFns ...func(*awsrds.Options)) (*awsrds.DeleteDBInstanceOutput, error)
	StartDBInstance(ctx context.Context, params *awsrds.StartDBInstanceInput, optFns ...func(*awsrds.Options)) (*awsrds.StartDBInstanceOutput, error)
	StopDBInstance(ctx context.Context, params *awsrds.StopDBInstanceInput, optFns ...func(*awsrds.Options)) (*awsrds.StopDBInstanceOutput, error)
	CreateDBSnapshot(ctx context.Context, params *awsrds.CreateDBSnapshotInput, optFns ...func(*awsrds.Options)) (*awsrds.CreateDBSnapshotOutput, error)
	RestoreDBInstanceFromDBSnapshot(ctx context.Context, params *awsrds.RestoreDBInstanceFromDBSnapshotInput, optFns ...func(*awsrds.Options)) (*awsrds.RestoreDBInstanceFromDBSnapshotOutput, error)
	DescribeDBSnapshots(ctx context.Context, params *awsrds.DescribeDBSnapshotsInput, optFns ...func(*awsrds.Options)) (*awsrds.DescribeDBSnapshotsOutput, error)
	ModifyDBInstance(ctx context.Context, params *awsrds.ModifyDBInstanceInput, optFns ...func(*awsrds.Options)) (*awsrds.ModifyDBInstanceOutput, error)
}

// Instance is the reshaped view of one database instance.
type Instance struct {
	DBInstanceIdentifier  string
	DBInstanceClass       string
	Engine                string
	EngineVersion         string
	DBInstanceStatus      string
	AllocatedStorage      int32
	StorageType           string
	Endpoint              string
	Port                  int32
	MultiAZ               bool
	BackupRetentionPeriod int32
}

// InstanceStatus is the reshaped view of one instance's state. Found is
// false when the identifier does not name a known instance.
type InstanceStatus struct {
	DBInstanceIdentifier string
	DBInstanceStatus     string
	Engine               string
	Endpoint             string
	Port                 int32
	Found                bool
}

// Snapshot is the reshaped view of one database snapshot.
type Snapshot struct {
	DBSnapshotIdentifier string
	DBInstanceIdentifier string
	Status               string
	SnapshotCreateTime   time.Time
	AllocatedStorage     int32
	SnapshotType         string
}

// CreateInstanceInput carries the parameters for a new database instance.
type CreateInstanceInput struct {
	DBInstanceIdentifier  string
	DBInstanceClass       string
	Engine                string
	MasterUsername        string
	MasterPassword        string
	AllocatedStorage      int32
	DBName                string
	VPCSecurityGroupIDs   []string
	SubnetGroupName       string
	StorageType           string
	MultiAZ               bool
	BackupRetentionPeriod int32
	Tags                  map[string]string
}

// ModifyInstanceInput carries the mutable parameters of ModifyInstance.
// Zero-valued fields are left unchanged.
type ModifyInstanceInput struct {
	DBInstanceClass  string
	AllocatedStorage int32
	ApplyImmediately bool
}

// Manager manages RDS database instances and snapshots.
type Manager struct {
	api API
	cfg *config.Config
	log *observability.Logger
}

// New creates a manager backed by a real RDS client built from cfg.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RDS client: %w", err)
	}
	return NewWithAPI(awsrds.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI creates a manager on top of an existing client, real or fake.
func NewWithAPI(api API, cfg *config.Config) *Manager {
	return &Manager{
		api: api,
		cfg: cfg,
		log: observability.FromConfig(cfg).WithField("service", "rds"),
	}
}

// ListInstances lists all database instances.
func (m *Manager) ListInstances(ctx context.Context) ([]Instance, error) {
	out, err := m.api.DescribeDBInstances(ctx, &awsrds.DescribeDBInstancesInput{})
	if err != nil {
		m.log.WithError(err).Error("failed to list RDS instances")
		return nil, fmt.Errorf("failed to list RDS instances: %w", err)
	}

	instances := make([]Instance, 0, len(out.DBInstances))
	for _, inst := range out.DBInstances {
		instances = append(instances, reshapeInstance(inst))
	}

	m.log.Infof("Found %d RDS instances", len(instances))
	return instances, nil
}

// CreateInstance provisions a new database instance. AllocatedStorage
// defaults to 20 GB and BackupRetentionPeriod to 7 days when zero.
func (m *Manager) CreateInstance(ctx context.Context, in CreateInstanceInput) (*Instance, error) {
	if in.AllocatedStorage == 0 {
		in.AllocatedStorage = 20
	}
	if in.StorageType == "" {
		in.StorageType = "gp2"
	}
	if in.BackupRetentionPeriod == 0 {
		in.BackupRetentionPeriod = 7
	}

	params := &awsrds.CreateDBInstanceInput{
		DBInstanceIdentifier:  aws.String(in.DBInstanceIdentifier),
		DBInstanceClass:       aws.String(in.DBInstanceClass),
		Engine:                aws.String(in.Engine),
		MasterUsername:        aws.String(in.MasterUsername),
		MasterUserPassword:    aws.String(in.MasterPassword),
		AllocatedStorage:      aws.Int32(in.AllocatedStorage),
		StorageType:           aws.String(in.StorageType),
		MultiAZ:               aws.Bool(in.MultiAZ),
		BackupRetentionPeriod: aws.Int32(in.BackupRetentionPeriod),
	}
	if in.DBName != "" {
		params.DBName = aws.String(in.DBName)
	}
	if len(in.VPCSecurityGroupIDs) > 0 {
		params.VpcSecurityGroupIds = in.VPCSecurityGroupIDs
	}
	if in.SubnetGroupName != "" {
		params.DBSubnetGroupName = aws.String(in.SubnetGroupName)
	}
	for key, value := range in.Tags {
		params.Tags = append(params.Tags, types.Tag{
			Key:   aws.String(key),
			Value: aws.String(value),
		})
	}

	out, err := m.api.CreateDBInstance(ctx, params)
	if err != nil {
		m.log.WithError(err).Error("failed to create RDS instance")
		return nil, fmt.Errorf("failed to create RDS instance: %w", err)
	}
	if out.DBInstance == nil {
		return nil, fmt.Errorf("failed to create RDS instance: empty response")
	}

	m.log.Infof("Created RDS instance: %s", in.DBInstanceIdentifier)
	instance := reshapeInstance(*out.DBInstance)
	return &instance, nil
}

// DeleteInstance deletes a database instance. When skipFinalSnapshot is
// false, finalSnapshotID names the snapshot taken before deletion.
func (m *Manager) DeleteInstance(ctx context.Context, identifier string, skipFinalSnapshot bool, finalSnapshotID string) error {
	params := &awsrds.DeleteDBInstanceInput{
		DBInstanceIdentifier: aws.String(identifier),
		SkipFinalSnapshot:    aws.Bool(skipFinalSnapshot),
	}
	if !skipFinalSnapshot && finalSnapshotID != "" {
		params.FinalDBSnapshotIdentifier = aws.String(finalSnapshotID)
	}

	if _, err := m.api.DeleteDBInstance(ctx, params); err != nil {
		m.log.WithError(err).Error("failed to delete RDS instance")
		return fmt.Errorf("failed to delete RDS instance: %w", err)
	}

	m.log.Infof("Deleted RDS instance: %s", identifier)
	return nil
}

// StartInstance starts a stopped database instance.
func (m *Manager) StartInstance(ctx context.Context, identifier string) error {
	_, err := m.api.StartDBInstance(ctx, &awsrds.StartDBInstanceInput{
		DBInstanceIdentifier: aws.String(identifier),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to start RDS instance")
		return fmt.Errorf("failed to start RDS instance: %w", err)
	}

	m.log.Infof("Started RDS instance: %s", identifier)
	return nil
}

// StopInstance stops a running database instance.
func (m *Manager) StopInstance(ctx context.Context, identifier string) error {
	_, err := m.api.StopDBInstance(ctx, &awsrds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(identifier),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to stop RDS instance")
		return fmt.Errorf("failed to stop RDS instance: %w", err)
	}

	m.log.Infof("Stopped RDS instance: %s", identifier)
	return nil
}

// CreateSnapshot takes a manual snapshot of a database instance.
func (m *Manager) CreateSnapshot(ctx context.Context, identifier, snapshotID string) (*Snapshot, error) {
	out, err := m.api.CreateDBSnapshot(ctx, &awsrds.CreateDBSnapshotInput{
		DBSnapshotIdentifier: aws.String(snapshotID),
		DBInstanceIdentifier: aws.String(identifier),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to create snapshot")
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	if out.DBSnapshot == nil {
		return nil, fmt.Errorf("failed to create snapshot: empty response")
	}

	m.log.Infof("Created snapshot: %s", snapshotID)
	snapshot := reshapeSnapshot(*out.DBSnapshot)
	return &snapshot, nil
}

// RestoreFromSnapshot provisions a new database instance from a snapshot.
func (m *Manager) RestoreFromSnapshot(ctx context.Context, identifier, snapshotID, instanceClass string) (*Instance, error) {
	out, err := m.api.RestoreDBInstanceFromDBSnapshot(ctx, &awsrds.RestoreDBInstanceFromDBSnapshotInput{
		DBInstanceIdentifier: aws.String(identifier),
		DBSnapshotIdentifier: aws.String(snapshotID),
		DBInstanceClass:      aws.String(instanceClass),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to restore from snapshot")
		return nil, fmt.Errorf("failed to restore from snapshot: %w", err)
	}
	if out.DBInstance == nil {
		return nil, fmt.Errorf("failed to restore from snapshot: empty response")
	}

	m.log.Infof("Restored instance from snapshot: %s", identifier)
	instance := reshapeInstance(*out.DBInstance)
	return &instance, nil
}

// ListSnapshots lists snapshots, optionally filtered to one instance.
func (m *Manager) ListSnapshots(ctx context.Context, identifier string) ([]Snapshot, error) {
	params := &awsrds.DescribeDBSnapshotsInput{}
	if identifier != "" {
		params.DBInstanceIdentifier = aws.String(identifier)
	}

	out, err := m.api.DescribeDBSnapshots(ctx, params)
	if err != nil {
		m.log.WithError(err).Error("failed to list snapshots")
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(out.DBSnapshots))
	for _, snap := range out.DBSnapshots {
		snapshots = append(snapshots, reshapeSnapshot(snap))
	}

	m.log.Infof("Found %d snapshots", len(snapshots))
	return snapshots, nil
}

// ModifyInstance changes a database instance's class or storage.
func (m *Manager) ModifyInstance(ctx context.Context, identifier string, in ModifyInstanceInput) error {
	params := &awsrds.ModifyDBInstanceInput{
		DBInstanceIdentifier: aws.String(identifier),
		ApplyImmediately:     aws.Bool(in.ApplyImmediately),
	}
	if in.DBInstanceClass != "" {
		params.DBInstanceClass = aws.String(in.DBInstanceClass)
	}
	if in.AllocatedStorage > 0 {
		params.AllocatedStorage = aws.Int32(in.AllocatedStorage)
	}

	if _, err := m.api.ModifyDBInstance(ctx, params); err != nil {
		m.log.WithError(err).Error("failed to modify RDS instance")
		return fmt.Errorf("failed to modify RDS instance: %w", err)
	}

	m.log.Infof("Modified RDS instance: %s", identifier)
	return nil
}

// GetInstanceStatus returns the state of one database instance. An unknown
// identifier yields Found=false, not an error.
func (m *Manager) GetInstanceStatus(ctx context.Context, identifier string) (*InstanceStatus, error) {
	out, err := m.api.DescribeDBInstances(ctx, &awsrds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(identifier),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to get instance status")
		return nil, fmt.Errorf("failed to get instance status: %w", err)
	}

	if len(out.DBInstances) == 0 {
		return &InstanceStatus{DBInstanceIdentifier: identifier}, nil
	}

	inst := out.DBInstances[0]
	status := &InstanceStatus{
		DBInstanceIdentifier: aws.ToString(inst.DBInstanceIdentifier),
		DBInstanceStatus:     aws.ToString(inst.DBInstanceStatus),
		Engine:               aws.ToString(inst.Engine),
		Found:                true,
	}
	if inst.Endpoint != nil {
		status.Endpoint = aws.ToString(inst.Endpoint.Address)
		status.Port = aws.ToInt32(inst.Endpoint.Port)
	}
	return status, nil
}

// reshapeInstance flattens one SDK database instance.
func reshapeInstance(inst types.DBInstance) Instance {
	out := Instance{
		DBInstanceIdentifier:  aws.ToString(inst.DBInstanceIdentifier),
		DBInstanceClass:       aws.ToString(inst.DBInstanceClass),
		Engine:                aws.ToString(inst.Engine),
		EngineVersion:         aws.ToString(inst.EngineVersion),
		DBInstanceStatus:      aws.ToString(inst.DBInstanceStatus),
		AllocatedStorage:      aws.ToInt32(inst.AllocatedStorage),
		StorageType:           aws.ToString(inst.StorageType),
		MultiAZ:               aws.ToBool(inst.MultiAZ),
		BackupRetentionPeriod: aws.ToInt32(inst.BackupRetentionPeriod),
	}
	if inst.Endpoint != nil {
		out.Endpoint = aws.ToString(inst.Endpoint.Address)
		out.Port = aws.ToInt32(inst.Endpoint.Port)
	}
	return out
}

// reshapeSnapshot flattens one SDK snapshot.
func reshapeSnapshot(snap types.DBSnapshot) Snapshot {
	out := Snapshot{
		DBSnapshotIdentifier: aws.ToString(snap.DBSnapshotIdentifier),
		DBInstanceIdentifier: aws.ToString(snap.DBInstanceIdentifier),
		Status:               aws.ToString(snap.Status),
		AllocatedStorage:     aws.ToInt32(snap.AllocatedStorage),
		SnapshotType:         aws.ToString(snap.SnapshotType),
	}
	if snap.SnapshotCreateTime != nil {
		out.SnapshotCreateTime = *snap.SnapshotCreateTime
	}
	return out
}

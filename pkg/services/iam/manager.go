package iam

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/O-deepcodee/AWS/pkg/awsclient"
	"github.com/O-deepcodee/AWS/pkg/config"
	"github.com/O-deepcodee/AWS/pkg/observability"
)

// API is the subset of the IAM client used by Manager.
type API interface {
	ListUsers(ctx context.Context, params *awsiam.ListUsersInput, optFns ...func(*awsiam.Options)) (*awsiam.ListUsersOutput, error)
	CreateUser(ctx context.Context, params *awsiam.CreateUserInput, optFns ...func(*awsiam.Options)) (*awsiam.CreateUserOutput, error)
	DeleteUser(ctx context.Context, params *awsiam.DeleteUserInput, optFns ...func(*awsiam.Options)) (*awsiam.DeleteUserOutput, error)
	CreateRole(ctx context.Context, params *awsiam.CreateRoleInput, optFns ...func(*awsiam.Options)) (*awsiam.CreateRoleOutput, error)
	DeleteRole(ctx context.Context, params *awsiam.DeleteRoleInput, optFns ...func(*awsiam.Options)) (*awsiam.DeleteRoleOutput, error)
	AttachUserPolicy(ctx context.Context, params *awsiam.AttachUserPolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.AttachUserPolicyOutput, error)
	DetachUserPolicy(ctx context.Context, params *awsiam.DetachUserPolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.DetachUserPolicyOutput, error)
	AttachRolePolicy(ctx context.Context, params *awsiam.AttachRolePolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *awsiam.DetachRolePolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.DetachRolePolicyOutput, error)
	CreateAccessKey(ctx context.Context, params *awsiam.CreateAccessKeyInput, optFns ...func(*awsiam.Options)) (*awsiam.CreateAccessKeyOutput, error)
	DeleteAccessKey(ctx context.Context, params *awsiam.DeleteAccessKeyInput, optFns ...func(*awsiam.Options)) (*awsiam.DeleteAccessKeyOutput, error)
	ListAccessKeys(ctx context.Context, params *awsiam.ListAccessKeysInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAccessKeysOutput, error)
	ListAttachedUserPolicies(ctx context.Context, params *awsiam.ListAttachedUserPoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedUserPoliciesOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *awsiam.ListAttachedRolePoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedRolePoliciesOutput, error)
	ListGroupsForUser(ctx context.Context, params *awsiam.ListGroupsForUserInput, optFns ...func(*awsiam.Options)) (*awsiam.ListGroupsForUserOutput, error)
	RemoveUserFromGroup(ctx context.Context, params *awsiam.RemoveUserFromGroupInput, optFns ...func(*awsiam.Options)) (*awsiam.RemoveUserFromGroupOutput, error)
}

// User is the reshaped view of one IAM user.
type User struct {
	UserName   string
	UserID     string
	Arn        string
	CreateDate time.Time
	Path       string
}

// Role is the reshaped view of one IAM role.
type Role struct {
	RoleName   string
	RoleID     string
	Arn        string
	CreateDate time.Time
	Path       string
}

// AttachedPolicy is the reshaped view of one managed policy attachment.
type AttachedPolicy struct {
	PolicyName string
	PolicyArn  string
}

// AccessKey is one full access key. SecretAccessKey is only populated at
// creation time.
type AccessKey struct {
	AccessKeyID     string
	SecretAccessKey string
	Status          string
	CreateDate      time.Time
}

// Group is the reshaped view of one group membership.
type Group struct {
	GroupName string
	GroupID   string
	Arn       string
}

// Manager manages IAM users, roles, and policies.
type Manager struct {
	api API
	cfg *config.Config
	log *observability.Logger
}

// New creates a manager backed by a real IAM client built from cfg.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize IAM client: %w", err)
	}
	return NewWithAPI(awsiam.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI creates a manager on top of an existing client, real or fake.
func NewWithAPI(api API, cfg *config.Config) *Manager {
	return &Manager{
		api: api,
		cfg: cfg,
		log: observability.FromConfig(cfg).WithField("service", "iam"),
	}
}

// ListUsers lists all IAM users.
func (m *Manager) ListUsers(ctx context.Context) ([]User, error) {
	out, err := m.api.ListUsers(ctx, &awsiam.ListUsersInput{})
	if err != nil {
		m.log.WithError(err).Error("failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]User, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, reshapeUser(u))
	}

	m.log.Infof("Found %d IAM users", len(users))
	return users, nil
}

// CreateUser creates a new IAM user. Empty path defaults to "/".
func (m *Manager) CreateUser(ctx context.Context, username, path string) (*User, error) {
	if path == "" {
		path = "/"
	}

	out, err := m.api.CreateUser(ctx, &awsiam.CreateUserInput{
		UserName: aws.String(username),
		Path:     aws.String(path),
	})
	if err != nil {
		m.log.WithError(err).Errorf("failed to create user %s", username)
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	if out.User == nil {
		return nil, fmt.Errorf("failed to create user %s: empty response", username)
	}

	m.log.Infof("Created IAM user: %s", username)
	user := reshapeUser(*out.User)
	return &user, nil
}

// DeleteUser deletes a user after removing its group memberships, detaching
// its managed policies, and deleting its access keys.
func (m *Manager) DeleteUser(ctx context.Context, username string) error {
	groups, err := m.UserGroups(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	for _, group := range groups {
		if err := m.RemoveUserFromGroup(ctx, username, group.GroupName); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", username, err)
		}
	}

	policies, err := m.ListUserPolicies(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	for _, policy := range policies {
		if err := m.DetachUserPolicy(ctx, username, policy.PolicyArn); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", username, err)
		}
	}

	keys, err := m.ListAccessKeys(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}
	for _, key := range keys {
		if err := m.DeleteAccessKey(ctx, username, key.AccessKeyID); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", username, err)
		}
	}

	if _, err := m.api.DeleteUser(ctx, &awsiam.DeleteUserInput{UserName: aws.String(username)}); err != nil {
		m.log.WithError(err).Errorf("failed to delete user %s", username)
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}

	m.log.Infof("Deleted IAM user: %s", username)
	return nil
}

// CreateRole creates a role with the given trust policy document. The
// document is any JSON-marshalable value, typically a map.
func (m *Manager) CreateRole(ctx context.Context, roleName string, assumeRolePolicy interface{}, description, path string) (*Role, error) {
	if path == "" {
		path = "/"
	}

	doc, err := json.Marshal(assumeRolePolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to create role %s: %w", roleName, err)
	}

	params := &awsiam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(string(doc)),
		Path:                     aws.String(path),
	}
	if description != "" {
		params.Description = aws.String(description)
	}

	out, err := m.api.CreateRole(ctx, params)
	if err != nil {
		m.log.WithError(err).Errorf("failed to create role %s", roleName)
		return nil, fmt.Errorf("failed to create role %s: %w", roleName, err)
	}
	if out.Role == nil {
		return nil, fmt.Errorf("failed to create role %s: empty response", roleName)
	}

	m.log.Infof("Created IAM role: %s", roleName)
	role := Role{
		RoleName: aws.ToString(out.Role.RoleName),
		RoleID:   aws.ToString(out.Role.RoleId),
		Arn:      aws.ToString(out.Role.Arn),
		Path:     aws.ToString(out.Role.Path),
	}
	if out.Role.CreateDate != nil {
		role.CreateDate = *out.Role.CreateDate
	}
	return &role, nil
}

// DeleteRole deletes a role after detaching its managed policies.
func (m *Manager) DeleteRole(ctx context.Context, roleName string) error {
	policies, err := m.ListRolePolicies(ctx, roleName)
	if err != nil {
		return fmt.Errorf("failed to delete role %s: %w", roleName, err)
	}
	for _, policy := range policies {
		if err := m.DetachRolePolicy(ctx, roleName, policy.PolicyArn); err != nil {
			return fmt.Errorf("failed to delete role %s: %w", roleName, err)
		}
	}

	if _, err := m.api.DeleteRole(ctx, &awsiam.DeleteRoleInput{RoleName: aws.String(roleName)}); err != nil {
		m.log.WithError(err).Errorf("failed to delete role %s", roleName)
		return fmt.Errorf("failed to delete role %s: %w", roleName, err)
	}

	m.log.Infof("Deleted IAM role: %s", roleName)
	return nil
}

// AttachUserPolicy attaches a managed policy to a user.
func (m *Manager) AttachUserPolicy(ctx context.Context, username, policyARN string) error {
	_, err := m.api.AttachUserPolicy(ctx, &awsiam.AttachUserPolicyInput{
		UserName:  aws.String(username),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to attach policy to user")
		return fmt.Errorf("failed to attach policy to user: %w", err)
	}

	m.log.Infof("Attached policy %s to user %s", policyARN, username)
	return nil
}

// DetachUserPolicy detaches a managed policy from a user.
func (m *Manager) DetachUserPolicy(ctx context.Context, username, policyARN string) error {
	_, err := m.api.DetachUserPolicy(ctx, &awsiam.DetachUserPolicyInput{
		UserName:  aws.String(username),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to detach policy from user")
		return fmt.Errorf("failed to detach policy from user: %w", err)
	}

	m.log.Infof("Detached policy %s from user %s", policyARN, username)
	return nil
}

// AttachRolePolicy attaches a managed policy to a role.
func (m *Manager) AttachRolePolicy(ctx context.Context, roleName, policyARN string) error {
	_, err := m.api.AttachRolePolicy(ctx, &awsiam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to attach policy to role")
		return fmt.Errorf("failed to attach policy to role: %w", err)
	}

	m.log.Infof("Attached policy %s to role %s", policyARN, roleName)
	return nil
}

// DetachRolePolicy detaches a managed policy from a role.
func (m *Manager) DetachRolePolicy(ctx context.Context, roleName, policyARN string) error {
	_, err := m.api.DetachRolePolicy(ctx, &awsiam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to detach policy from role")
		return fmt.Errorf("failed to detach policy from role: %w", err)
	}

	m.log.Infof("Detached policy %s from role %s", policyARN, roleName)
	return nil
}

// CreateAccessKey creates an access key for a user. The secret is only
// available in the returned value.
func (m *Manager) CreateAccessKey(ctx context.Context, username string) (*AccessKey, error) {
	out, err := m.api.CreateAccessKey(ctx, &awsiam.CreateAccessKeyInput{
		UserName: aws.String(username),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to create access key")
		return nil, fmt.Errorf("failed to create access key: %w", err)
	}
	if out.AccessKey == nil {
		return nil, fmt.Errorf("failed to create access key: empty response")
	}

	m.log.Infof("Created access key for user %s", username)
	return &AccessKey{
		AccessKeyID:     aws.ToString(out.AccessKey.AccessKeyId),
		SecretAccessKey: aws.ToString(out.AccessKey.SecretAccessKey),
		Status:          string(out.AccessKey.Status),
	}, nil
}

// DeleteAccessKey deletes one of a user's access keys.
func (m *Manager) DeleteAccessKey(ctx context.Context, username, accessKeyID string) error {
	_, err := m.api.DeleteAccessKey(ctx, &awsiam.DeleteAccessKeyInput{
		UserName:    aws.String(username),
		AccessKeyId: aws.String(accessKeyID),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to delete access key")
		return fmt.Errorf("failed to delete access key: %w", err)
	}

	m.log.Infof("Deleted access key %s for user %s", accessKeyID, username)
	return nil
}

// ListAccessKeys lists a user's access key metadata. Secrets are never
// included.
func (m *Manager) ListAccessKeys(ctx context.Context, username string) ([]AccessKey, error) {
	out, err := m.api.ListAccessKeys(ctx, &awsiam.ListAccessKeysInput{
		UserName: aws.String(username),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to list access keys")
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}

	keys := make([]AccessKey, 0, len(out.AccessKeyMetadata))
	for _, md := range out.AccessKeyMetadata {
		key := AccessKey{
			AccessKeyID: aws.ToString(md.AccessKeyId),
			Status:      string(md.Status),
		}
		if md.CreateDate != nil {
			key.CreateDate = *md.CreateDate
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ListUserPolicies lists the managed policies attached to a user.
func (m *Manager) ListUserPolicies(ctx context.Context, username string) ([]AttachedPolicy, error) {
	out, err := m.api.ListAttachedUserPolicies(ctx, &awsiam.ListAttachedUserPoliciesInput{
		UserName: aws.String(username),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to list user policies")
		return nil, fmt.Errorf("failed to list user policies: %w", err)
	}
	return reshapePolicies(out.AttachedPolicies), nil
}

// ListRolePolicies lists the managed policies attached to a role.
func (m *Manager) ListRolePolicies(ctx context.Context, roleName string) ([]AttachedPolicy, error) {
	out, err := m.api.ListAttachedRolePolicies(ctx, &awsiam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to list role policies")
		return nil, fmt.Errorf("failed to list role policies: %w", err)
	}
	return reshapePolicies(out.AttachedPolicies), nil
}

// UserGroups lists the groups a user belongs to.
func (m *Manager) UserGroups(ctx context.Context, username string) ([]Group, error) {
	out, err := m.api.ListGroupsForUser(ctx, &awsiam.ListGroupsForUserInput{
		UserName: aws.String(username),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to get user groups")
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}

	groups := make([]Group, 0, len(out.Groups))
	for _, g := range out.Groups {
		groups = append(groups, Group{
			GroupName: aws.ToString(g.GroupName),
			GroupID:   aws.ToString(g.GroupId),
			Arn:       aws.ToString(g.Arn),
		})
	}
	return groups, nil
}

// RemoveUserFromGroup removes a user from a group.
func (m *Manager) RemoveUserFromGroup(ctx context.Context, username, groupName string) error {
	_, err := m.api.RemoveUserFromGroup(ctx, &awsiam.RemoveUserFromGroupInput{
		UserName:  aws.String(username),
		GroupName: aws.String(groupName),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to remove user from group")
		return fmt.Errorf("failed to remove user from group: %w", err)
	}

	m.log.Infof("Removed user %s from group %s", username, groupName)
	return nil
}

func reshapeUser(u types.User) User {
	out := User{
		UserName: aws.ToString(u.UserName),
		UserID:   aws.ToString(u.UserId),
		Arn:      aws.ToString(u.Arn),
		Path:     aws.ToString(u.Path),
	}
	if u.CreateDate != nil {
		out.CreateDate = *u.CreateDate
	}
	return out
}

func reshapePolicies(policies []types.AttachedPolicy) []AttachedPolicy {
	out := make([]AttachedPolicy, 0, len(policies))
	for _, p := range policies {
		out = append(out, AttachedPolicy{
			PolicyName: aws.ToString(p.PolicyName),
			PolicyArn:  aws.ToString(p.PolicyArn),
		})
	}
	return out
}

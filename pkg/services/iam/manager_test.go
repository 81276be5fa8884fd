package iam

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/O-deepcodee/AWS/pkg/config"
)

type fakeIAM struct {
	users          []types.User
	userGroups     map[string][]types.Group
	userPolicies   map[string][]types.AttachedPolicy
	rolePolicies   map[string][]types.AttachedPolicy
	userAccessKeys map[string][]types.AccessKeyMetadata

	// calls records every mutating operation in order.
	calls []string

	createRoleInputs []*awsiam.CreateRoleInput

	err error
}

func (f *fakeIAM) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeIAM) ListUsers(ctx context.Context, params *awsiam.ListUsersInput, optFns ...func(*awsiam.Options)) (*awsiam.ListUsersOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsiam.ListUsersOutput{Users: f.users}, nil
}

func (f *fakeIAM) CreateUser(ctx context.Context, params *awsiam.CreateUserInput, optFns ...func(*awsiam.Options)) (*awsiam.CreateUserOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("CreateUser:" + aws.ToString(params.UserName))
	return &awsiam.CreateUserOutput{
		User: &types.User{
			UserName:   params.UserName,
			UserId:     aws.String("AIDAEXAMPLE"),
			Arn:        aws.String("arn:aws:iam::123456789012:user" + aws.ToString(params.Path) + aws.ToString(params.UserName)),
			Path:       params.Path,
			CreateDate: aws.Time(time.Now()),
		},
	}, nil
}

func (f *fakeIAM) DeleteUser(ctx context.Context, params *awsiam.DeleteUserInput, optFns ...func(*awsiam.Options)) (*awsiam.DeleteUserOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("DeleteUser:" + aws.ToString(params.UserName))
	return &awsiam.DeleteUserOutput{}, nil
}

func (f *fakeIAM) CreateRole(ctx context.Context, params *awsiam.CreateRoleInput, optFns ...func(*awsiam.Options)) (*awsiam.CreateRoleOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createRoleInputs = append(f.createRoleInputs, params)
	return &awsiam.CreateRoleOutput{
		Role: &types.Role{
			RoleName:   params.RoleName,
			RoleId:     aws.String("AROAEXAMPLE"),
			Arn:        aws.String("arn:aws:iam::123456789012:role/" + aws.ToString(params.RoleName)),
			Path:       params.Path,
			CreateDate: aws.Time(time.Now()),
		},
	}, nil
}

func (f *fakeIAM) DeleteRole(ctx context.Context, params *awsiam.DeleteRoleInput, optFns ...func(*awsiam.Options)) (*awsiam.DeleteRoleOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("DeleteRole:" + aws.ToString(params.RoleName))
	return &awsiam.DeleteRoleOutput{}, nil
}

func (f *fakeIAM) AttachUserPolicy(ctx context.Context, params *awsiam.AttachUserPolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.AttachUserPolicyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("AttachUserPolicy:" + aws.ToString(params.PolicyArn))
	return &awsiam.AttachUserPolicyOutput{}, nil
}

func (f *fakeIAM) DetachUserPolicy(ctx context.Context, params *awsiam.DetachUserPolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.DetachUserPolicyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("DetachUserPolicy:" + aws.ToString(params.PolicyArn))
	return &awsiam.DetachUserPolicyOutput{}, nil
}

func (f *fakeIAM) AttachRolePolicy(ctx context.Context, params *awsiam.AttachRolePolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.AttachRolePolicyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("AttachRolePolicy:" + aws.ToString(params.PolicyArn))
	return &awsiam.AttachRolePolicyOutput{}, nil
}

func (f *fakeIAM) DetachRolePolicy(ctx context.Context, params *awsiam.DetachRolePolicyInput, optFns ...func(*awsiam.Options)) (*awsiam.DetachRolePolicyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("DetachRolePolicy:" + aws.ToString(params.PolicyArn))
	return &awsiam.DetachRolePolicyOutput{}, nil
}

func (f *fakeIAM) CreateAccessKey(ctx context.Context, params *awsiam.CreateAccessKeyInput, optFns ...func(*awsiam.Options)) (*awsiam.CreateAccessKeyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("CreateAccessKey:" + aws.ToString(params.UserName))
	return &awsiam.CreateAccessKeyOutput{
		AccessKey: &types.AccessKey{
			AccessKeyId:     aws.String("AKIAEXAMPLE"),
			SecretAccessKey: aws.String("secret-material"),
			Status:          types.StatusTypeActive,
		},
	}, nil
}

func (f *fakeIAM) DeleteAccessKey(ctx context.Context, params *awsiam.DeleteAccessKeyInput, optFns ...func(*awsiam.Options)) (*awsiam.DeleteAccessKeyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("DeleteAccessKey:" + aws.ToString(params.AccessKeyId))
	return &awsiam.DeleteAccessKeyOutput{}, nil
}

func (f *fakeIAM) ListAccessKeys(ctx context.Context, params *awsiam.ListAccessKeysInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAccessKeysOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsiam.ListAccessKeysOutput{
		AccessKeyMetadata: f.userAccessKeys[aws.ToString(params.UserName)],
	}, nil
}

func (f *fakeIAM) ListAttachedUserPolicies(ctx context.Context, params *awsiam.ListAttachedUserPoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedUserPoliciesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsiam.ListAttachedUserPoliciesOutput{
		AttachedPolicies: f.userPolicies[aws.ToString(params.UserName)],
	}, nil
}

func (f *fakeIAM) ListAttachedRolePolicies(ctx context.Context, params *awsiam.ListAttachedRolePoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedRolePoliciesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsiam.ListAttachedRolePoliciesOutput{
		AttachedPolicies: f.rolePolicies[aws.ToString(params.RoleName)],
	}, nil
}

func (f *fakeIAM) ListGroupsForUser(ctx context.Context, params *awsiam.ListGroupsForUserInput, optFns ...func(*awsiam.Options)) (*awsiam.ListGroupsForUserOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awsiam.ListGroupsForUserOutput{
		Groups: f.userGroups[aws.ToString(params.UserName)],
	}, nil
}

func (f *fakeIAM) RemoveUserFromGroup(ctx context.Context, params *awsiam.RemoveUserFromGroupInput, optFns ...func(*awsiam.Options)) (*awsiam.RemoveUserFromGroupOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.record("RemoveUserFromGroup:" + aws.ToString(params.GroupName))
	return &awsiam.RemoveUserFromGroupOutput{}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("LOG_LEVEL", "ERROR")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestListUsers(t *testing.T) {
	created := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	fake := &fakeIAM{
		users: []types.User{
			{
				UserName:   aws.String("alice"),
				UserId:     aws.String("AIDAALICE"),
				Arn:        aws.String("arn:aws:iam::123456789012:user/alice"),
				Path:       aws.String("/"),
				CreateDate: aws.Time(created),
			},
		},
	}
	m := NewWithAPI(fake, testConfig(t))

	users, err := m.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].UserName)
	assert.Equal(t, created, users[0].CreateDate)
}

func TestListUsers_Error(t *testing.T) {
	m := NewWithAPI(&fakeIAM{err: errors.New("access denied")}, testConfig(t))

	_, err := m.ListUsers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list users")
}

func TestCreateUser(t *testing.T) {
	fake := &fakeIAM{}
	m := NewWithAPI(fake, testConfig(t))

	user, err := m.CreateUser(context.Background(), "bob", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.UserName)
	// Empty path defaults to "/".
	assert.Equal(t, "arn:aws:iam::123456789012:user/bob", user.Arn)

	_, err = m.CreateUser(context.Background(), "svc-user", "/service/")
	require.NoError(t, err)
	assert.Equal(t, []string{"CreateUser:bob", "CreateUser:svc-user"}, fake.calls)
}

func TestDeleteUser_Cascade(t *testing.T) {
	fake := &fakeIAM{
		userGroups: map[string][]types.Group{
			"alice": {{GroupName: aws.String("admins"), GroupId: aws.String("AGPAEXAMPLE"), Arn: aws.String("arn:aws:iam::123456789012:group/admins")}},
		},
		userPolicies: map[string][]types.AttachedPolicy{
			"alice": {{PolicyName: aws.String("ReadOnly"), PolicyArn: aws.String("arn:aws:iam::aws:policy/ReadOnlyAccess")}},
		},
		userAccessKeys: map[string][]types.AccessKeyMetadata{
			"alice": {{AccessKeyId: aws.String("AKIAOLD"), Status: types.StatusTypeActive}},
		},
	}
	m := NewWithAPI(fake, testConfig(t))

	require.NoError(t, m.DeleteUser(context.Background(), "alice"))

	// Memberships, then policies, then keys, then the user itself.
	assert.Equal(t, []string{
		"RemoveUserFromGroup:admins",
		"DetachUserPolicy:arn:aws:iam::aws:policy/ReadOnlyAccess",
		"DeleteAccessKey:AKIAOLD",
		"DeleteUser:alice",
	}, fake.calls)
}

func TestDeleteUser_NoAttachments(t *testing.T) {
	fake := &fakeIAM{}
	m := NewWithAPI(fake, testConfig(t))

	require.NoError(t, m.DeleteUser(context.Background(), "bob"))
	assert.Equal(t, []string{"DeleteUser:bob"}, fake.calls)
}

func TestCreateRole(t *testing.T) {
	fake := &fakeIAM{}
	m := NewWithAPI(fake, testConfig(t))

	trustPolicy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": map[string]string{"Service": "lambda.amazonaws.com"},
				"Action":    "sts:AssumeRole",
			},
		},
	}

	role, err := m.CreateRole(context.Background(), "lambda-exec", trustPolicy, "Lambda execution role", "")
	require.NoError(t, err)
	assert.Equal(t, "lambda-exec", role.RoleName)
	assert.Equal(t, "arn:aws:iam::123456789012:role/lambda-exec", role.Arn)

	require.Len(t, fake.createRoleInputs, 1)
	in := fake.createRoleInputs[0]
	assert.Equal(t, "/", aws.ToString(in.Path))
	assert.Equal(t, "Lambda execution role", aws.ToString(in.Description))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.AssumeRolePolicyDocument)), &doc))
	assert.Equal(t, "2012-10-17", doc["Version"])
}

func TestDeleteRole_DetachesPolicies(t *testing.T) {
	fake := &fakeIAM{
		rolePolicies: map[string][]types.AttachedPolicy{
			"lambda-exec": {
				{PolicyName: aws.String("BasicExecution"), PolicyArn: aws.String("arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole")},
			},
		},
	}
	m := NewWithAPI(fake, testConfig(t))

	require.NoError(t, m.DeleteRole(context.Background(), "lambda-exec"))
	assert.Equal(t, []string{
		"DetachRolePolicy:arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole",
		"DeleteRole:lambda-exec",
	}, fake.calls)
}

func TestPolicyAttachment(t *testing.T) {
	fake := &fakeIAM{}
	m := NewWithAPI(fake, testConfig(t))
	ctx := context.Background()

	require.NoError(t, m.AttachUserPolicy(ctx, "alice", "arn:aws:iam::aws:policy/ReadOnlyAccess"))
	require.NoError(t, m.DetachUserPolicy(ctx, "alice", "arn:aws:iam::aws:policy/ReadOnlyAccess"))
	require.NoError(t, m.AttachRolePolicy(ctx, "lambda-exec", "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"))
	require.NoError(t, m.DetachRolePolicy(ctx, "lambda-exec", "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"))

	assert.Equal(t, []string{
		"AttachUserPolicy:arn:aws:iam::aws:policy/ReadOnlyAccess",
		"DetachUserPolicy:arn:aws:iam::aws:policy/ReadOnlyAccess",
		"AttachRolePolicy:arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess",
		"DetachRolePolicy:arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess",
	}, fake.calls)
}

func TestAccessKeys(t *testing.T) {
	created := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeIAM{
		userAccessKeys: map[string][]types.AccessKeyMetadata{
			"alice": {
				{AccessKeyId: aws.String("AKIAOLD"), Status: types.StatusTypeInactive, CreateDate: aws.Time(created)},
			},
		},
	}
	m := NewWithAPI(fake, testConfig(t))
	ctx := context.Background()

	key, err := m.CreateAccessKey(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", key.AccessKeyID)
	assert.Equal(t, "secret-material", key.SecretAccessKey)
	assert.Equal(t, "Active", key.Status)

	keys, err := m.ListAccessKeys(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "AKIAOLD", keys[0].AccessKeyID)
	assert.Equal(t, "Inactive", keys[0].Status)
	assert.Empty(t, keys[0].SecretAccessKey)
	assert.Equal(t, created, keys[0].CreateDate)

	require.NoError(t, m.DeleteAccessKey(ctx, "alice", "AKIAOLD"))
}

func TestUserGroups(t *testing.T) {
	fake := &fakeIAM{
		userGroups: map[string][]types.Group{
			"alice": {
				{GroupName: aws.String("admins"), GroupId: aws.String("AGPAEXAMPLE"), Arn: aws.String("arn:aws:iam::123456789012:group/admins")},
			},
		},
	}
	m := NewWithAPI(fake, testConfig(t))

	groups, err := m.UserGroups(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "admins", groups[0].GroupName)

	none, err := m.UserGroups(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}

package awsclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/O-deepcodee/AWS/pkg/config"
)

func TestLoad_StaticCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test_key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test_secret")
	t.Setenv("AWS_SESSION_TOKEN", "test_token")
	t.Setenv("AWS_DEFAULT_REGION", "us-west-2")
	t.Setenv("AWS_PROFILE", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	awsCfg, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "us-west-2", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test_key", creds.AccessKeyID)
	assert.Equal(t, "test_secret", creds.SecretAccessKey)
	assert.Equal(t, "test_token", creds.SessionToken)
}

func TestLoad_RegionFromOverlayFile(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test_key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test_secret")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_DEFAULT_REGION", "us-east-1")
	t.Setenv("AWS_PROFILE", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Set("aws.region", config.StringValue("eu-central-1"))

	awsCfg, err := Load(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", awsCfg.Region)
}

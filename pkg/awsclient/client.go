package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/O-deepcodee/AWS/pkg/config"
)

// Load builds an aws.Config from the resolver's derived credential view.
//
// When both an access key id and a secret are configured, a static
// credentials provider is installed (session token included when present);
// otherwise the SDK default chain applies (shared profile, IAM role, env).
// The configured region and profile apply whenever present.
func Load(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	view := cfg.CredentialView()

	var opts []func(*awsconfig.LoadOptions) error

	if region, ok := view[config.CredRegion]; ok {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	if profile := cfg.GetString("aws.profile", ""); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	accessKey, hasKey := view[config.CredAccessKeyID]
	secretKey, hasSecret := view[config.CredSecretAccessKey]
	if hasKey && hasSecret {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, view[config.CredSessionToken]),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awsCfg, nil
}

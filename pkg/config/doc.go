// Package config resolves the effective toolkit configuration from layered
// sources: compiled-in defaults, environment variables, and an optional YAML
// file, in increasing priority.
//
// # Overview
//
// The resolved configuration is a tree of typed values addressed by
// dot-delimited paths such as "aws.region". The file layer is deep-merged on
// top of the environment layer: mappings merge recursively, anything else is
// replaced by the overlay.
//
// # Environment variables
//
// AWS settings:
//
//	AWS_ACCESS_KEY_ID
//	AWS_SECRET_ACCESS_KEY
//	AWS_SESSION_TOKEN
//	AWS_DEFAULT_REGION="us-east-1"
//	AWS_PROFILE
//
// Application settings:
//
//	LOG_LEVEL="INFO"
//	DEBUG="false"
//
// Service defaults:
//
//	S3_BUCKET_PREFIX="aws-toolkit-"
//	S3_ENCRYPTION="AES256"
//	EC2_KEY_PAIR_NAME="aws-toolkit-keypair"
//	EC2_SECURITY_GROUP="aws-toolkit-sg"
//	LAMBDA_TIMEOUT="30"
//	LAMBDA_MEMORY_SIZE="128"
//
// # Usage Example
//
// Load configuration and read values:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	region := cfg.GetString("aws.region", "us-east-1")
//	timeout := cfg.GetInt("lambda.timeout", 30)
//
// A missing file is not an error; a file that exists but is malformed YAML
// fails Load with *ParseError.
//
// # Related Packages
//
//   - pkg/awsclient: builds SDK clients from the derived credential view
//   - pkg/observability: reads app.log_level / app.debug
package config

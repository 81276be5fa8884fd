package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/O-deepcodee/AWS/pkg/awsclient"
	"github.com/O-deepcodee/AWS/pkg/config"
	"github.com/O-deepcodee/AWS/pkg/observability"
)

// DeleteObjects accepts at most 1000 keys per call.
const deleteBatchSize = 1000

// API is the subset of the S3 client used by Manager.
type API interface {
	ListBuckets(ctx context.Context, params *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error)
	CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *awss3.DeleteBucketInput, optFns ...func(*awss3.Options)) (*awss3.DeleteBucketOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, params *awss3.CopyObjectInput, optFns ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error)
	HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	PutBucketPolicy(ctx context.Context, params *awss3.PutBucketPolicyInput, optFns ...func(*awss3.Options)) (*awss3.PutBucketPolicyOutput, error)
}

// Presigner generates presigned request URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Bucket is the reshaped view of one S3 bucket.
type Bucket struct {
	Name         string
	CreationDate time.Time
}

// Object is the reshaped view of one S3 object listing entry.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	StorageClass string
}

// ObjectMetadata is the reshaped view of an object's head response.
type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	LastModified  time.Time
	ETag          string
	Metadata      map[string]string
	StorageClass  string
}

// Manager manages S3 buckets and objects.
type Manager struct {
	api       API
	presigner Presigner
	cfg       *config.Config
	log       *observability.Logger
}

// New creates a manager backed by a real S3 client built from cfg.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg)
	return NewWithAPI(client, awss3.NewPresignClient(client), cfg), nil
}

// NewWithAPI creates a manager on top of an existing client, real or fake.
func NewWithAPI(api API, presigner Presigner, cfg *config.Config) *Manager {
	return &Manager{
		api:       api,
		presigner: presigner,
		cfg:       cfg,
		log:       observability.FromConfig(cfg).WithField("service", "s3"),
	}
}

// ListBuckets lists all S3 buckets.
func (m *Manager) ListBuckets(ctx context.Context) ([]Bucket, error) {
	out, err := m.api.ListBuckets(ctx, &awss3.ListBucketsInput{})
	if err != nil {
		m.log.WithError(err).Error("failed to list buckets")
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	buckets := make([]Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, Bucket{
			Name:         aws.ToString(b.Name),
			CreationDate: aws.ToTime(b.CreationDate),
		})
	}

	m.log.Infof("Found %d buckets", len(buckets))
	return buckets, nil
}

// CreateBucket creates a new S3 bucket. An empty region falls back to the
// configured aws.region. us-east-1 must not carry a location constraint.
func (m *Manager) CreateBucket(ctx context.Context, bucketName, region string) error {
	if region == "" {
		region = m.cfg.GetString("aws.region", "us-east-1")
	}

	input := &awss3.CreateBucketInput{Bucket: aws.String(bucketName)}
	if region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}

	if _, err := m.api.CreateBucket(ctx, input); err != nil {
		m.log.WithError(err).Errorf("failed to create bucket %s", bucketName)
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}

	m.log.Infof("Created bucket: %s", bucketName)
	return nil
}

// DeleteBucket deletes an S3 bucket; with force it empties the bucket first.
func (m *Manager) DeleteBucket(ctx context.Context, bucketName string, force bool) error {
	if force {
		if _, err := m.DeleteAllObjects(ctx, bucketName, ""); err != nil {
			return err
		}
	}

	if _, err := m.api.DeleteBucket(ctx, &awss3.DeleteBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		m.log.WithError(err).Errorf("failed to delete bucket %s", bucketName)
		return fmt.Errorf("failed to delete bucket %s: %w", bucketName, err)
	}

	m.log.Infof("Deleted bucket: %s", bucketName)
	return nil
}

// UploadFile uploads a local file to S3. An empty key defaults to the file's
// base name; the configured s3.encryption mode is applied server-side.
func (m *Manager) UploadFile(ctx context.Context, filePath, bucketName, objectKey string) error {
	if objectKey == "" {
		objectKey = filepath.Base(filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		m.log.WithError(err).Error("failed to upload file")
		return fmt.Errorf("failed to upload file: %w", err)
	}
	defer f.Close()

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
		Body:   f,
	}
	if encryption := m.cfg.GetString("s3.encryption", ""); encryption != "" {
		input.ServerSideEncryption = types.ServerSideEncryption(encryption)
	}

	if _, err := m.api.PutObject(ctx, input); err != nil {
		m.log.WithError(err).Error("failed to upload file")
		return fmt.Errorf("failed to upload file: %w", err)
	}

	m.log.Infof("Uploaded %s to s3://%s/%s", filePath, bucketName, objectKey)
	return nil
}

// DownloadFile downloads an object to a local file, creating parent
// directories as needed.
func (m *Manager) DownloadFile(ctx context.Context, bucketName, objectKey, filePath string) error {
	out, err := m.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to download file")
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer out.Body.Close()

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to download file: %w", err)
		}
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	m.log.Infof("Downloaded s3://%s/%s to %s", bucketName, objectKey, filePath)
	return nil
}

// ListObjects lists objects in a bucket, optionally filtered by key prefix.
// A non-positive maxKeys falls back to 1000.
func (m *Manager) ListObjects(ctx context.Context, bucketName, prefix string, maxKeys int32) ([]Object, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	input := &awss3.ListObjectsV2Input{
		Bucket:  aws.String(bucketName),
		MaxKeys: aws.Int32(maxKeys),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	out, err := m.api.ListObjectsV2(ctx, input)
	if err != nil {
		m.log.WithError(err).Error("failed to list objects")
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	objects := make([]Object, 0, len(out.Contents))
	for _, obj := range out.Contents {
		storageClass := string(obj.StorageClass)
		if storageClass == "" {
			storageClass = "STANDARD"
		}
		objects = append(objects, Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
			StorageClass: storageClass,
		})
	}

	m.log.Infof("Found %d objects in %s", len(objects), bucketName)
	return objects, nil
}

// DeleteObject deletes a single object.
func (m *Manager) DeleteObject(ctx context.Context, bucketName, objectKey string) error {
	_, err := m.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to delete object")
		return fmt.Errorf("failed to delete object: %w", err)
	}

	m.log.Infof("Deleted s3://%s/%s", bucketName, objectKey)
	return nil
}

// DeleteAllObjects deletes every object under the prefix and returns how
// many were deleted.
func (m *Manager) DeleteAllObjects(ctx context.Context, bucketName, prefix string) (int, error) {
	objects, err := m.ListObjects(ctx, bucketName, prefix, 0)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	keys := make([]types.ObjectIdentifier, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, types.ObjectIdentifier{Key: aws.String(obj.Key)})
	}

	deleted := 0
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		out, err := m.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(bucketName),
			Delete: &types.Delete{Objects: keys[start:end]},
		})
		if err != nil {
			m.log.WithError(err).Error("failed to delete objects")
			return deleted, fmt.Errorf("failed to delete objects: %w", err)
		}
		deleted += len(out.Deleted)
	}

	m.log.Infof("Deleted %d objects from %s", deleted, bucketName)
	return deleted, nil
}

// CopyObject copies an object within S3.
func (m *Manager) CopyObject(ctx context.Context, sourceBucket, sourceKey, destBucket, destKey string) error {
	_, err := m.api.CopyObject(ctx, &awss3.CopyObjectInput{
		CopySource: aws.String(sourceBucket + "/" + sourceKey),
		Bucket:     aws.String(destBucket),
		Key:        aws.String(destKey),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to copy object")
		return fmt.Errorf("failed to copy object: %w", err)
	}

	m.log.Infof("Copied s3://%s/%s to s3://%s/%s", sourceBucket, sourceKey, destBucket, destKey)
	return nil
}

// GetObjectMetadata returns the reshaped head-object response.
func (m *Manager) GetObjectMetadata(ctx context.Context, bucketName, objectKey string) (*ObjectMetadata, error) {
	out, err := m.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to get object metadata")
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	storageClass := string(out.StorageClass)
	if storageClass == "" {
		storageClass = "STANDARD"
	}

	return &ObjectMetadata{
		ContentLength: aws.ToInt64(out.ContentLength),
		ContentType:   aws.ToString(out.ContentType),
		LastModified:  aws.ToTime(out.LastModified),
		ETag:          aws.ToString(out.ETag),
		Metadata:      out.Metadata,
		StorageClass:  storageClass,
	}, nil
}

// PresignGet generates a presigned GET URL for an object.
func (m *Manager) PresignGet(ctx context.Context, bucketName, objectKey string, expiry time.Duration) (string, error) {
	if m.presigner == nil {
		return "", fmt.Errorf("presigning is not configured")
	}
	if expiry <= 0 {
		expiry = time.Hour
	}

	req, err := m.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	}, awss3.WithPresignExpires(expiry))
	if err != nil {
		m.log.WithError(err).Error("failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	m.log.Infof("Generated presigned URL for s3://%s/%s", bucketName, objectKey)
	return req.URL, nil
}

// PresignPut generates a presigned PUT URL for uploading an object.
func (m *Manager) PresignPut(ctx context.Context, bucketName, objectKey string, expiry time.Duration) (string, error) {
	if m.presigner == nil {
		return "", fmt.Errorf("presigning is not configured")
	}
	if expiry <= 0 {
		expiry = time.Hour
	}

	req, err := m.presigner.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	}, awss3.WithPresignExpires(expiry))
	if err != nil {
		m.log.WithError(err).Error("failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	m.log.Infof("Generated presigned URL for s3://%s/%s", bucketName, objectKey)
	return req.URL, nil
}

// SetBucketPolicy applies a bucket policy. The policy is any
// JSON-marshalable value, typically a map.
func (m *Manager) SetBucketPolicy(ctx context.Context, bucketName string, policy interface{}) error {
	doc, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	_, err = m.api.PutBucketPolicy(ctx, &awss3.PutBucketPolicyInput{
		Bucket: aws.String(bucketName),
		Policy: aws.String(string(doc)),
	})
	if err != nil {
		m.log.WithError(err).Error("failed to set bucket policy")
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	m.log.Infof("Set bucket policy for %s", bucketName)
	return nil
}

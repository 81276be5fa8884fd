package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/O-deepcodee/AWS/pkg/config"
)

type fakeS3 struct {
	listBucketsOut   *awss3.ListBucketsOutput
	listObjectsOut   *awss3.ListObjectsV2Output
	headObjectOut    *awss3.HeadObjectOutput
	err              error
	createInputs     []*awss3.CreateBucketInput
	putInputs        []*awss3.PutObjectInput
	deleteObjsInputs []*awss3.DeleteObjectsInput
	policyInputs     []*awss3.PutBucketPolicyInput
}

func (f *fakeS3) ListBuckets(ctx context.Context, params *awss3.ListBucketsInput, optFns ...func(*awss3.Options)) (*awss3.ListBucketsOutput, error) {
	return f.listBucketsOut, f.err
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error) {
	f.createInputs = append(f.createInputs, params)
	return &awss3.CreateBucketOutput{}, f.err
}

func (f *fakeS3) DeleteBucket(ctx context.Context, params *awss3.DeleteBucketInput, optFns ...func(*awss3.Options)) (*awss3.DeleteBucketOutput, error) {
	return &awss3.DeleteBucketOutput{}, f.err
}

func (f *fakeS3) PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	f.putInputs = append(f.putInputs, params)
	return &awss3.PutObjectOutput{}, f.err
}

func (f *fakeS3) GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("object content"))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	return f.listObjectsOut, f.err
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	return &awss3.DeleteObjectOutput{}, f.err
}

func (f *fakeS3) DeleteObjects(ctx context.Context, params *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error) {
	f.deleteObjsInputs = append(f.deleteObjsInputs, params)
	deleted := make([]types.DeletedObject, len(params.Delete.Objects))
	for i, obj := range params.Delete.Objects {
		deleted[i] = types.DeletedObject{Key: obj.Key}
	}
	return &awss3.DeleteObjectsOutput{Deleted: deleted}, f.err
}

func (f *fakeS3) CopyObject(ctx context.Context, params *awss3.CopyObjectInput, optFns ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
	return &awss3.CopyObjectOutput{}, f.err
}

func (f *fakeS3) HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	return f.headObjectOut, f.err
}

func (f *fakeS3) PutBucketPolicy(ctx context.Context, params *awss3.PutBucketPolicyInput, optFns ...func(*awss3.Options)) (*awss3.PutBucketPolicyOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.policyInputs = append(f.policyInputs, params)
	return &awss3.PutBucketPolicyOutput{}, nil
}

type fakePresigner struct {
	url string
	err error

	putInputs []*awss3.PutObjectInput
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: f.url}, nil
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.putInputs = append(f.putInputs, params)
	return &v4.PresignedHTTPRequest{URL: f.url}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("S3_ENCRYPTION", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("DEBUG", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestListBuckets(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeS3{listBucketsOut: &awss3.ListBucketsOutput{
		Buckets: []types.Bucket{
			{Name: aws.String("bucket-one"), CreationDate: aws.Time(created)},
			{Name: aws.String("bucket-two"), CreationDate: aws.Time(created.Add(time.Hour))},
		},
	}}
	m := NewWithAPI(fake, nil, testConfig(t))

	buckets, err := m.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Name: "bucket-one", CreationDate: created},
		{Name: "bucket-two", CreationDate: created.Add(time.Hour)},
	}, buckets)
}

func TestListBuckets_Error(t *testing.T) {
	fake := &fakeS3{err: fmt.Errorf("access denied")}
	m := NewWithAPI(fake, nil, testConfig(t))

	_, err := m.ListBuckets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list buckets")
	assert.Contains(t, err.Error(), "access denied")
}

func TestCreateBucket_RegionHandling(t *testing.T) {
	tests := []struct {
		name           string
		region         string
		wantConstraint bool
	}{
		{name: "us-east-1 omits location constraint", region: "us-east-1", wantConstraint: false},
		{name: "other regions carry location constraint", region: "eu-west-1", wantConstraint: true},
		{name: "empty region falls back to config default", region: "", wantConstraint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{}
			m := NewWithAPI(fake, nil, testConfig(t))

			require.NoError(t, m.CreateBucket(context.Background(), "my-bucket", tt.region))
			require.Len(t, fake.createInputs, 1)

			input := fake.createInputs[0]
			assert.Equal(t, "my-bucket", aws.ToString(input.Bucket))
			if tt.wantConstraint {
				require.NotNil(t, input.CreateBucketConfiguration)
				assert.Equal(t, types.BucketLocationConstraint(tt.region), input.CreateBucketConfiguration.LocationConstraint)
			} else {
				assert.Nil(t, input.CreateBucketConfiguration)
			}
		})
	}
}

func TestUploadFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	t.Run("key defaults to base name and encryption applies", func(t *testing.T) {
		fake := &fakeS3{}
		m := NewWithAPI(fake, nil, cfg)

		require.NoError(t, m.UploadFile(context.Background(), path, "my-bucket", ""))
		require.Len(t, fake.putInputs, 1)

		input := fake.putInputs[0]
		assert.Equal(t, "report.txt", aws.ToString(input.Key))
		assert.Equal(t, types.ServerSideEncryptionAes256, input.ServerSideEncryption)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		m := NewWithAPI(&fakeS3{}, nil, cfg)
		err := m.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope"), "my-bucket", "")
		require.Error(t, err)
	})
}

func TestDownloadFile_CreatesParentDirs(t *testing.T) {
	fake := &fakeS3{}
	m := NewWithAPI(fake, nil, testConfig(t))

	dest := filepath.Join(t.TempDir(), "deep", "nested", "file.txt")
	require.NoError(t, m.DownloadFile(context.Background(), "my-bucket", "file.txt", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "object content", string(data))
}

func TestListObjects(t *testing.T) {
	modified := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	fake := &fakeS3{listObjectsOut: &awss3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("a.txt"), Size: aws.Int64(11), LastModified: aws.Time(modified), ETag: aws.String(`"etag-a"`)},
			{Key: aws.String("b.txt"), Size: aws.Int64(22), LastModified: aws.Time(modified), ETag: aws.String(`"etag-b"`), StorageClass: types.ObjectStorageClassGlacier},
		},
	}}
	m := NewWithAPI(fake, nil, testConfig(t))

	objects, err := m.ListObjects(context.Background(), "my-bucket", "", 0)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "STANDARD", objects[0].StorageClass)
	assert.Equal(t, "GLACIER", objects[1].StorageClass)
	assert.Equal(t, int64(11), objects[0].Size)
}

func TestDeleteAllObjects_Batches(t *testing.T) {
	contents := make([]types.Object, 2500)
	for i := range contents {
		contents[i] = types.Object{Key: aws.String(fmt.Sprintf("key-%04d", i)), Size: aws.Int64(1)}
	}
	fake := &fakeS3{listObjectsOut: &awss3.ListObjectsV2Output{Contents: contents}}
	m := NewWithAPI(fake, nil, testConfig(t))

	deleted, err := m.DeleteAllObjects(context.Background(), "my-bucket", "")
	require.NoError(t, err)
	assert.Equal(t, 2500, deleted)

	require.Len(t, fake.deleteObjsInputs, 3)
	assert.Len(t, fake.deleteObjsInputs[0].Delete.Objects, 1000)
	assert.Len(t, fake.deleteObjsInputs[1].Delete.Objects, 1000)
	assert.Len(t, fake.deleteObjsInputs[2].Delete.Objects, 500)
}

func TestDeleteAllObjects_EmptyBucket(t *testing.T) {
	fake := &fakeS3{listObjectsOut: &awss3.ListObjectsV2Output{}}
	m := NewWithAPI(fake, nil, testConfig(t))

	deleted, err := m.DeleteAllObjects(context.Background(), "my-bucket", "")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, fake.deleteObjsInputs)
}

func TestGetObjectMetadata(t *testing.T) {
	modified := time.Date(2024, 7, 9, 10, 0, 0, 0, time.UTC)
	fake := &fakeS3{headObjectOut: &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(512),
		ContentType:   aws.String("text/plain"),
		LastModified:  aws.Time(modified),
		ETag:          aws.String(`"etag"`),
		Metadata:      map[string]string{"owner": "ops"},
	}}
	m := NewWithAPI(fake, nil, testConfig(t))

	meta, err := m.GetObjectMetadata(context.Background(), "my-bucket", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, &ObjectMetadata{
		ContentLength: 512,
		ContentType:   "text/plain",
		LastModified:  modified,
		ETag:          `"etag"`,
		Metadata:      map[string]string{"owner": "ops"},
		StorageClass:  "STANDARD",
	}, meta)
}

func TestPresignGet(t *testing.T) {
	t.Run("returns URL", func(t *testing.T) {
		m := NewWithAPI(&fakeS3{}, &fakePresigner{url: "https://example.com/signed"}, testConfig(t))
		url, err := m.PresignGet(context.Background(), "my-bucket", "a.txt", 0)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/signed", url)
	})

	t.Run("without presigner", func(t *testing.T) {
		m := NewWithAPI(&fakeS3{}, nil, testConfig(t))
		_, err := m.PresignGet(context.Background(), "my-bucket", "a.txt", 0)
		require.Error(t, err)
	})
}

func TestPresignPut(t *testing.T) {
	t.Run("returns upload URL", func(t *testing.T) {
		presigner := &fakePresigner{url: "https://example.com/signed-put"}
		m := NewWithAPI(&fakeS3{}, presigner, testConfig(t))

		url, err := m.PresignPut(context.Background(), "my-bucket", "a.txt", 0)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/signed-put", url)

		require.Len(t, presigner.putInputs, 1)
		assert.Equal(t, "my-bucket", aws.ToString(presigner.putInputs[0].Bucket))
		assert.Equal(t, "a.txt", aws.ToString(presigner.putInputs[0].Key))
	})

	t.Run("without presigner", func(t *testing.T) {
		m := NewWithAPI(&fakeS3{}, nil, testConfig(t))
		_, err := m.PresignPut(context.Background(), "my-bucket", "a.txt", 0)
		require.Error(t, err)
	})
}

func TestSetBucketPolicy(t *testing.T) {
	fake := &fakeS3{}
	m := NewWithAPI(fake, nil, testConfig(t))

	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  "arn:aws:s3:::my-bucket/*",
			},
		},
	}

	require.NoError(t, m.SetBucketPolicy(context.Background(), "my-bucket", policy))

	require.Len(t, fake.policyInputs, 1)
	in := fake.policyInputs[0]
	assert.Equal(t, "my-bucket", aws.ToString(in.Bucket))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Policy)), &doc))
	assert.Equal(t, "2012-10-17", doc["Version"])
}

func TestSetBucketPolicy_Error(t *testing.T) {
	fake := &fakeS3{err: fmt.Errorf("access denied")}
	m := NewWithAPI(fake, nil, testConfig(t))

	err := m.SetBucketPolicy(context.Background(), "my-bucket", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set bucket policy")
}

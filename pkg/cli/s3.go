package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/O-deepcodee/AWS/pkg/config"
	s3svc "github.com/O-deepcodee/AWS/pkg/services/s3"
)

func newS3Command() *Command {
	return &Command{
		Name:        "s3",
		Description: "S3 bucket and object management commands",
		Subcommands: map[string]*Command{
			"list-buckets": {
				Name:        "list-buckets",
				Description: "List S3 buckets",
				Run:         runS3ListBuckets,
			},
			"create-bucket": {
				Name:        "create-bucket",
				Description: "Create an S3 bucket",
				Run:         runS3CreateBucket,
			},
			"upload": {
				Name:        "upload",
				Description: "Upload a file to S3",
				Run:         runS3Upload,
			},
			"list-objects": {
				Name:        "list-objects",
				Description: "List objects in an S3 bucket",
				Run:         runS3ListObjects,
			},
		},
	}
}

func runS3ListBuckets(cfg *config.Config, args []string) error {
	manager, err := s3svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	buckets, err := manager.ListBuckets(context.Background())
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		fmt.Println("No buckets found.")
		return nil
	}

	fmt.Printf("Found %d buckets:\n", len(buckets))
	for _, bucket := range buckets {
		fmt.Printf("  %s (created: %s)\n", bucket.Name, bucket.CreationDate.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runS3CreateBucket(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("s3 create-bucket", flag.ExitOnError)
	region := flags.String("region", "", "AWS region")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: s3 create-bucket [flags] <bucket-name>")
	}

	manager, err := s3svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	bucketName := flags.Arg(0)
	if err := manager.CreateBucket(context.Background(), bucketName, *region); err != nil {
		return err
	}

	fmt.Printf("Created bucket: %s\n", bucketName)
	return nil
}

func runS3Upload(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("s3 upload", flag.ExitOnError)
	key := flags.String("key", "", "S3 object key (default: filename)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		return fmt.Errorf("usage: s3 upload [flags] <file-path> <bucket-name>")
	}

	manager, err := s3svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	filePath, bucketName := flags.Arg(0), flags.Arg(1)
	if err := manager.UploadFile(context.Background(), filePath, bucketName, *key); err != nil {
		return err
	}

	objectKey := *key
	if objectKey == "" {
		objectKey = filepath.Base(filePath)
	}
	fmt.Printf("Uploaded %s to s3://%s/%s\n", filePath, bucketName, objectKey)
	return nil
}

func runS3ListObjects(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("s3 list-objects", flag.ExitOnError)
	prefix := flags.String("prefix", "", "Object key prefix filter")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: s3 list-objects [flags] <bucket-name>")
	}

	manager, err := s3svc.New(context.Background(), cfg)
	if err != nil {
		return err
	}

	bucketName := flags.Arg(0)
	objects, err := manager.ListObjects(context.Background(), bucketName, *prefix, 0)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		fmt.Printf("No objects found in %s.\n", bucketName)
		return nil
	}

	fmt.Printf("Found %d objects in %s:\n", len(objects), bucketName)
	for _, obj := range objects {
		fmt.Printf("  %s (%d bytes)\n", obj.Key, obj.Size)
	}
	return nil
}

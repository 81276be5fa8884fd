// Package s3 manages S3 buckets and objects: listing, creation, uploads and
// downloads, batch deletion, copies, metadata and presigned GET URLs.
//
// The Manager reshapes SDK responses into small typed structs and applies
// toolkit defaults from the configuration (default region for bucket
// creation, server-side encryption mode for uploads).
package s3

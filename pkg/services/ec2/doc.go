// Package ec2 manages EC2 instances and related resources: listing with
// describe filters, launching, lifecycle transitions, status checks, tags,
// security groups and key pairs.
package ec2

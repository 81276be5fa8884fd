// Package iam manages IAM users, roles, policy attachments, and access
// keys.
package iam

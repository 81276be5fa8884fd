// Package cli implements the awstk command tree. Commands are grouped by
// AWS service, with global -config and -verbose flags handled at the root.
package cli

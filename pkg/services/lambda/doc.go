// Package lambda manages AWS Lambda functions: deployment from zip files
// or source directories, invocation, and event source wiring.
package lambda

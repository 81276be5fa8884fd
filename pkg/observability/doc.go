// Package observability provides structured JSON logging for the toolkit.
//
// # Structured Logging
//
// Create a logger at an explicit level:
//
//	logger := observability.NewLogger(observability.InfoLevel, nil)
//	logger.Infof("Found %d instances", len(instances))
//
// Or derive the level from the resolved configuration (app.log_level,
// app.debug):
//
//	logger := observability.FromConfig(cfg)
//	logger.WithField("service", "ec2").WithError(err).Error("failed to list instances")
//
// Logs go to stderr by default so command output on stdout stays clean.
package observability

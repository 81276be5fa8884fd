// Package rds manages RDS database instances: lifecycle, snapshots, and
// restores.
package rds

// Package health exposes the monitor phase through the standard gRPC health
// service (grpc.health.v1.Health) so supervisors and the status subcommand can
// tell whether the alert pin is being guarded.
package health

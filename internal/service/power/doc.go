// Package power invokes the operating system shutdown facility.
//
// Command runs a configured executable (by default /sbin/shutdown -h now) and
// reports launch failures and non-zero exits wrapped in ErrShutdownInvocation.
// DryRun stands in for it in debug mode.
package power

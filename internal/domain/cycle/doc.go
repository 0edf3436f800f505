// Package cycle contains core domain types of a fetch-verify-promote cycle.
//
// It defines the failure taxonomy (Kind and Error) with the process exit code
// attached to every kind, and the forward-only State machine a cycle walks
// through from Init to Promoted or Rejected.
package cycle

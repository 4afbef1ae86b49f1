// Package user defines the membership User entity and its repository.
//
// The repository interface is the seam between the flow services and the
// store: a postgres implementation backs the service, an in-memory
// implementation backs tests and the demo mode. Counter updates
// (IncrementFailedAccess) are atomic in both.
package user

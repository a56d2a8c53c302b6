package errdefs

import (
	"fmt"
	"strings"
)

// UnknownSourceError is returned when a source identifier is not present in
// the catalog. It is a caller error and is never retried.
type UnknownSourceError struct {
	SourceID  string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown data source %q: available sources: %s",
		e.SourceID, strings.Join(e.Available, ", "))
}

// CredentialsUnavailableError is returned when the private key or bastion
// username for a cloud cannot be resolved. The KeyPath and Hint fields let
// the CLI render actionable guidance.
type CredentialsUnavailableError struct {
	Cloud   string
	KeyPath string
	Hint    string
}

func (e *CredentialsUnavailableError) Error() string {
	return fmt.Sprintf("credentials unavailable for cloud %q: expected key at %s: %s",
		e.Cloud, e.KeyPath, e.Hint)
}

// BastionUnreachableError is returned when the pre-flight check against a
// bastion host fails. It wraps the underlying network error and is safe to
// retry manually.
type BastionUnreachableError struct {
	SourceID    string
	BastionHost string
	Err         error
}

func (e *BastionUnreachableError) Error() string {
	return fmt.Sprintf("source %s: cannot reach bastion %s: %v (check the bastion hostname or request bastion access)",
		e.SourceID, e.BastionHost, e.Err)
}

func (e *BastionUnreachableError) Unwrap() error { return e.Err }

// NoPortAvailableError is returned when no free local port could be bound in
// the scanned range above the source's default port.
type NoPortAvailableError struct {
	SourceID string
	BasePort int
	Attempts int
}

func (e *NoPortAvailableError) Error() string {
	return fmt.Sprintf("source %s: no free local port in range %d-%d: disable unused sources or free local ports",
		e.SourceID, e.BasePort, e.BasePort+e.Attempts-1)
}

// TunnelEstablishError is returned when the forwarding binding through the
// bastion could not be opened. It wraps the underlying transport error.
type TunnelEstablishError struct {
	SourceID string
	Stage    string
	Err      error
}

func (e *TunnelEstablishError) Error() string {
	return fmt.Sprintf("source %s: tunnel establishment failed at %s: %v", e.SourceID, e.Stage, e.Err)
}

func (e *TunnelEstablishError) Unwrap() error { return e.Err }

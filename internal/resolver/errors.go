package resolver

import (
	"fmt"
	"strings"
)

// RequirementSource names who asked for a package and under what constraint.
type RequirementSource struct {
	Requester  string
	Constraint string
}

func (s RequirementSource) String() string {
	c := s.Constraint
	if c == "" {
		c = "any"
	}
	return fmt.Sprintf("%s requires %s", s.Requester, c)
}

// UnresolvableError reports a package with no satisfying version.
type UnresolvableError struct {
	Package    string
	Constraint string
	Reason     string
}

func (e *UnresolvableError) Error() string {
	c := e.Constraint
	if c == "" {
		c = "any"
	}
	return fmt.Sprintf("cannot resolve %q under constraint %q: %s", e.Package, c, e.Reason)
}

// ConflictError reports an empty intersection between the constraints
// recorded for one package. Requirements lists every requester verbatim.
type ConflictError struct {
	Package      string
	Requirements []RequirementSource
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Requirements))
	for i, r := range e.Requirements {
		parts[i] = r.String()
	}
	return fmt.Sprintf("version conflict on %q: %s", e.Package, strings.Join(parts, "; "))
}

// ClientError wraps a registry failure. It is fatal for the resolution
// attempt; retries happen inside the transport, not here.
type ClientError struct {
	Package string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Package == "" {
		return fmt.Sprintf("registry client: %v", e.Err)
	}
	return fmt.Sprintf("registry client: %s: %v", e.Package, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

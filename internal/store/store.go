// Package store defines the storage interfaces for the authorization
// engine's own state: companies, principals, projects, and project grants.
//
// Everything here is the privileged read/write path. Nothing in this package
// (or its implementations) calls the decision engine; the engine's inputs are
// produced from these stores and must never depend on a query the engine
// guards.
package store

import "errors"

// Sentinel errors shared across store implementations.
var (
	ErrCompanyNotFound      = errors.New("company not found")
	ErrCompanyAlreadyExists = errors.New("company already exists")

	ErrPrincipalNotFound      = errors.New("principal not found")
	ErrPrincipalAlreadyExists = errors.New("principal already exists")
	ErrCompanyAlreadyAssigned = errors.New("principal already assigned to a company")

	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectAlreadyExists = errors.New("project already exists")

	ErrGrantNotFound = errors.New("project grant not found")
)

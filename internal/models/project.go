package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the operational status of a project.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusOnHold   ProjectStatus = "on_hold"
	ProjectStatusComplete ProjectStatus = "complete"
)

// Project is a resource container scoped to one company. CompanyID is
// immutable after creation; project-scoped resources inherit it.
type Project struct {
	ProjectID uuid.UUID // UUIDv7
	CompanyID uuid.UUID
	Name      string
	Status    ProjectStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

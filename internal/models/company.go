package models

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a tenant in the system. Every principal and project
// belongs to exactly one company; no data crosses the company boundary.
type Company struct {
	CompanyID uuid.UUID // UUIDv7
	Name      string
	Slug      string // URL-safe identifier, unique across all companies
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

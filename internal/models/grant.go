package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectGrant is a per-(project, principal) capability set, independent of
// the principal's company-wide role. A grant never outlives the project or
// principal it references; the database cascades on deletion of either.
type ProjectGrant struct {
	ProjectID   uuid.UUID
	PrincipalID uuid.UUID

	// ProjectRole is a display label ("foreman", "inspector"); it carries no
	// authority. The capability booleans are authoritative.
	ProjectRole string

	CanEdit    bool
	CanDelete  bool
	CanApprove bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

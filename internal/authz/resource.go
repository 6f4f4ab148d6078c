package authz

import "github.com/google/uuid"

// ResourceKind classifies what a ResourceRef points at. The engine only
// branches on KindPrincipal (for the read-own-record exception); the rest
// exist so callers build refs that read like the schema.
type ResourceKind string

const (
	// KindPrincipal is a principal record itself.
	KindPrincipal ResourceKind = "principal"

	// KindCompany covers company-scoped records with no project (company
	// settings, cost codes, office documents).
	KindCompany ResourceKind = "company"

	// KindProject is a project record.
	KindProject ResourceKind = "project"

	// KindRecord is any project-scoped row (daily report, RFI, document).
	KindRecord ResourceKind = "record"
)

// ResourceRef identifies the resource an access check is about. The storage
// layer fills it from columns it already holds; resolving a ref never queries
// a protected table (see graph.Index).
type ResourceRef struct {
	Kind      ResourceKind
	ID        uuid.UUID
	CompanyID uuid.UUID

	// ProjectID is set for project-scoped resources and nil for
	// company-scoped ones. It selects which scoping rule the engine applies.
	ProjectID *uuid.UUID
}

// ProjectScoped reports whether the ref belongs to a project.
func (r ResourceRef) ProjectScoped() bool {
	return r.ProjectID != nil
}

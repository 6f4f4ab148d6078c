package authz

// Action is the operation the storage layer is about to perform against a
// protected resource.
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// ActionApprove is the approval step of an approval-workflow resource
	// (e.g. signing off a daily report), distinct from updating it.
	ActionApprove Action = "approve"
)

// Actions lists every valid action.
var Actions = []Action{ActionSelect, ActionInsert, ActionUpdate, ActionDelete, ActionApprove}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

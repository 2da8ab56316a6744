package counsellor

import "errors"

// Action rejection taxonomy. Handlers map these onto HTTP statuses; the
// wrapped message carries the user-facing guidance.
var (
	// ErrInvalidStage rejects an action attempted outside its required stage.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrPreconditionFailed rejects advancement while the current stage's
	// completion invariant does not hold.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrNotFound marks a referenced country or university that is absent
	// from the catalog.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCount rejects finalizing a university list that is not
	// exactly five entries long.
	ErrInvalidCount = errors.New("invalid count")
	// ErrCapacityExceeded rejects adding a sixth university.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrDuplicate rejects adding a university already on the list.
	ErrDuplicate = errors.New("duplicate")
	// ErrNotRequired rejects a score for an exam that is not required.
	ErrNotRequired = errors.New("not required")
	// ErrInvalidInput rejects a malformed or missing payload field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownAction rejects an unrecognized action name.
	ErrUnknownAction = errors.New("unknown action")
)

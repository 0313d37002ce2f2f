package friends

import "errors"

// Domain errors returned by the friends service. Handlers map these to
// user-facing responses; ErrStoreUnavailable is the only one that signals
// infrastructure failure rather than a caller mistake.
var (
	ErrValidation         = errors.New("friends: user id must be positive")
	ErrSelfRelation       = errors.New("friends: cannot befriend yourself")
	ErrAlreadyRelated     = errors.New("friends: relationship already exists")
	ErrAlreadyAccepted    = errors.New("friends: already friends")
	ErrNoSuchRequest      = errors.New("friends: no pending request from that user")
	ErrNoSuchRelationship = errors.New("friends: no relationship with that user")
	ErrStoreUnavailable   = errors.New("friends: store unavailable")
)

package push

import "errors"

// Sentinel errors returned by Manager operations.
//
// Errors are wrapped with context (channel name, user id), so compare with
// errors.Is rather than ==.
var (
	// ErrInvalidName is returned when a channel name is empty or holds
	// anything but ASCII letters, digits and underscores.
	ErrInvalidName = errors.New("push: invalid channel name")

	// ErrInvalidUserID is returned when a user id is not a string of digits.
	ErrInvalidUserID = errors.New("push: invalid user id")

	// ErrAlreadyExists is returned when creating a channel that already exists.
	ErrAlreadyExists = errors.New("push: channel already exists")

	// ErrNotFound is returned when a referenced channel does not exist.
	ErrNotFound = errors.New("push: channel not found")

	// ErrNoActiveSession is returned when an operation needs the user to
	// hold at least one live connection.
	ErrNoActiveSession = errors.New("push: no active session for user")

	// ErrEmptyList is returned when a presence list contains no user ids.
	ErrEmptyList = errors.New("push: empty user id list")

	// ErrInvalidParameters is returned for missing or malformed combined input.
	ErrInvalidParameters = errors.New("push: invalid parameters")
)

// Kind names a class of failure. The values match the error kinds exposed
// to API clients.
type Kind string

// Error kinds.
const (
	KindNone              Kind = ""
	KindInvalidName       Kind = "InvalidName"
	KindInvalidUserID     Kind = "InvalidUserId"
	KindAlreadyExists     Kind = "AlreadyExists"
	KindNotFound          Kind = "NotFound"
	KindNoActiveSession   Kind = "NoActiveSession"
	KindEmptyList         Kind = "EmptyList"
	KindInvalidParameters Kind = "InvalidParameters"
	KindUnknown           Kind = "Unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidName, KindInvalidName},
	{ErrInvalidUserID, KindInvalidUserID},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrNotFound, KindNotFound},
	{ErrNoActiveSession, KindNoActiveSession},
	{ErrEmptyList, KindEmptyList},
	{ErrInvalidParameters, KindInvalidParameters},
}

// KindOf classifies err. It returns KindNone for nil and KindUnknown for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

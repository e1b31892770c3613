/*
Package errs provides custom error types and application-level error code constants.

Codes are grouped by failure class so that both the HTTP layer and the
WebSocket error frames can report a stable, machine-readable reason.
*/
package errs

// 1xxx: Validation errors (missing or malformed input; the operation is not applied).
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON could not be parsed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005

	// ErrInvalidUsername indicates a username outside the accepted format.
	ErrInvalidUsername = 1101

	// ErrInvalidPassword indicates a password outside the accepted length bounds.
	ErrInvalidPassword = 1102

	// ErrMessageEmpty indicates a message with no content.
	ErrMessageEmpty = 1201

	// ErrMessageTooLong indicates message content over the maximum byte length.
	ErrMessageTooLong = 1202

	// ErrRoomTypeInvalid indicates a room type other than "group" or "direct".
	ErrRoomTypeInvalid = 1301

	// ErrInvalidAvatarFile indicates an avatar upload with a disallowed type or size.
	ErrInvalidAvatarFile = 1401
)

// 2xxx: Conflict and not-found errors.
const (
	// ErrUsernameTaken indicates that the requested username already exists.
	ErrUsernameTaken = 2001

	// ErrUserNotFound indicates an unknown user id or username.
	ErrUserNotFound = 2101

	// ErrRoomNotFound indicates an unknown room id.
	ErrRoomNotFound = 2102

	// ErrMessageNotFound indicates an unknown message id.
	ErrMessageNotFound = 2103
)

// 3xxx: Authentication and access errors.
const (
	// ErrUnauthorized indicates a missing, invalid, or revoked session token.
	ErrUnauthorized = 3001

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = 3002

	// ErrAlreadyLoggedIn indicates an auth operation while already holding a session.
	ErrAlreadyLoggedIn = 3003

	// ErrNotRoomMember indicates the caller holds no membership in the target room.
	ErrNotRoomMember = 3101
)

// 5xxx: Internal errors.
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000

	// ErrIntegrity indicates an internal inconsistency, such as a message whose
	// sender no longer resolves. Always logged, never silently dropped.
	ErrIntegrity = 5001

	// ErrStorageFailed indicates a failure talking to the avatar object store.
	ErrStorageFailed = 5002

	// ErrStorageDisabled indicates the avatar object store is not configured.
	ErrStorageDisabled = 5003
)

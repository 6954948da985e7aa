/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in the error events sent to clients.
*/
package errs

// 1xxx: Request Validation Errors
const (
	// ErrInvalidParams indicates that event payload validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound frame or request body was not valid JSON.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimitExceeded indicates that the connection rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Messaging Errors
const (
	// ErrMessageEmpty indicates that a chat message contained no text after trimming.
	ErrMessageEmpty = 2101

	// ErrMessageTooLong indicates that a chat message exceeded the maximum length.
	ErrMessageTooLong = 2102
)

// 3xxx: Authentication and Session Errors
const (
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = 3001

	// ErrUserAlreadyExists indicates a registration collision on user id, email, or username.
	ErrUserAlreadyExists = 3002

	// ErrInvalidUsername indicates that the supplied username does not satisfy the format rules.
	ErrInvalidUsername = 3003

	// ErrInvalidPassword indicates that the supplied password does not satisfy the length rules.
	ErrInvalidPassword = 3004

	// ErrInvalidEmail indicates that the supplied email address is malformed.
	ErrInvalidEmail = 3005

	// ErrSessionInvalid indicates an expired or unparseable session token.
	ErrSessionInvalid = 3006

	// ErrNotAuthenticated indicates an event that requires a bound user on an anonymous connection.
	ErrNotAuthenticated = 3007

	// ErrInvalidStatus indicates an unknown presence status value in a profile update.
	ErrInvalidStatus = 3008
)

// 4xxx: Lookup Errors
const (
	// ErrUserNotFound indicates a user lookup miss.
	ErrUserNotFound = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the persistence layer failed to serve a request.
	ErrStoreUnavailable = 5001
)

/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template, standardizing the
HTTP status and user-facing message for each failure.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status means HTTP 200 with a non-zero business code in the envelope.
var errorMap = map[int]CustomError{
	// 1xxx: Validation
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Request body is not valid JSON.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Invalid username.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Invalid password.", Status: http.StatusBadRequest},
	ErrMessageEmpty:         {Code: ErrMessageEmpty, Message: "Message content is empty.", Status: http.StatusBadRequest},
	ErrMessageTooLong:       {Code: ErrMessageTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrRoomTypeInvalid:      {Code: ErrRoomTypeInvalid, Message: "Invalid room type.", Status: http.StatusBadRequest},
	ErrInvalidAvatarFile:    {Code: ErrInvalidAvatarFile, Message: "Invalid avatar file.", Status: http.StatusBadRequest},

	// 2xxx: Conflict / not found
	ErrUsernameTaken:   {Code: ErrUsernameTaken, Message: "Username is already taken.", Status: http.StatusConflict},
	ErrUserNotFound:    {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Chat room not found.", Status: http.StatusNotFound},
	ErrMessageNotFound: {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},

	// 3xxx: Auth / access
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed in.", Status: http.StatusBadRequest},
	ErrNotRoomMember:      {Code: ErrNotRoomMember, Message: "You are not a member of this room.", Status: http.StatusForbidden},

	// 5xxx: Internal
	ErrUnknown:         {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrIntegrity:       {Code: ErrIntegrity, Message: "Internal data inconsistency.", Status: http.StatusInternalServerError},
	ErrStorageFailed:   {Code: ErrStorageFailed, Message: "File storage request failed. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageDisabled: {Code: ErrStorageDisabled, Message: "File storage is not available.", Status: http.StatusNotImplemented},
}

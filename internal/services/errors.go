// Package services defines the business logic for conversations, messages,
// the turn pipeline, and analytics. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Conversation-related errors.
var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist, is deleted, or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationNotPublic is returned when an operation requires a
	// published conversation, such as rotating a share token that was never
	// minted. Share-token lookups themselves report ErrConversationNotFound
	// so token validity is never revealed.
	ErrConversationNotPublic = errors.New("conversation not public")

	// ErrEmptyMessage is returned when a submitted turn contains no content
	// after sanitization.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a submitted turn exceeds the
	// maximum configured length limit.
	ErrMessageTooLong = errors.New("message too long")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbiddenInteraction is returned when a user attempts to like,
	// dislike, react to, or pin a message they are not permitted to touch,
	// or when like/dislike targets a non-AI message.
	ErrForbiddenInteraction = errors.New("cannot interact with this message")

	// ErrInvalidExportFormat is returned when an export is requested in an
	// unsupported format.
	ErrInvalidExportFormat = errors.New("unsupported export format")
)

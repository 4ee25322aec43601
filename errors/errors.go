package errors

import "fmt"

var (
	ErrMalformedConversationID = fmt.Errorf("malformed conversation id")
	ErrUnknownEventType        = fmt.Errorf("unknown event type")
	ErrCorruptPersistedSession = fmt.Errorf("corrupt persisted session")
	ErrMissingCurrentUser      = fmt.Errorf("current user not set")
	ErrUnknownConversation     = fmt.Errorf("unknown conversation")
	ErrEmptyPeer               = fmt.Errorf("both peer ids are empty")
	ErrEmptyWords              = fmt.Errorf("no words have been found")
	ErrNotFound                = fmt.Errorf("key not found")
)

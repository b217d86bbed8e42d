package uploads

import (
	"errors"
	"fmt"
)

// ErrEventNotAccepting rejects an upload aimed at an event that is closed
// for submissions.
var ErrEventNotAccepting = errors.New("event is not accepting uploads")

// ObjectNotFoundError signals that a completion notice named an object key
// that does not exist in the store.
type ObjectNotFoundError struct {
	Key string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object %q not found in store", e.Key)
}

// SizeMismatchError signals that the stored object's size disagrees with
// the size the client declared at completion.
type SizeMismatchError struct {
	Declared int64
	Stored   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("declared size %d does not match stored size %d", e.Declared, e.Stored)
}

package users

import (
	"errors"
	"fmt"
)

var ErrStoreUnavailable = errors.New("credential store unavailable")

// StoreError is returned when a credential query could not be executed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credential store, %s: %s", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

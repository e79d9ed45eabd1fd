package typedstore

import "errors"

var (
	// ErrNotRegistered is returned when reading a kind unknown to the Store
	ErrNotRegistered = errors.New("typedstore: kind not registered")
	// ErrEmpty is returned when reading from a file with no data
	ErrEmpty = errors.New("typedstore: no records")
	// ErrOutOfRange is returned for a position outside of the file
	ErrOutOfRange = errors.New("typedstore: position out of range")
	// ErrDecode is returned when a payload doesn't decode as the table's type
	ErrDecode = errors.New("typedstore: can't decode record")
	// ErrSizeMismatch is returned when a kind is used with a payload size
	// different from the one it was registered with
	ErrSizeMismatch = errors.New("typedstore: record size mismatch")
	ErrInvalidKind  = errors.New("typedstore: invalid kind")
	ErrConsumed     = errors.New("typedstore: sequence already consumed")
)

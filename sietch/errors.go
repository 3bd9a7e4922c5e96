package sietch

import "errors"

var (
	ErrItemNotFound         = errors.New("item not found")
	ErrItemAlreadyExists    = errors.New("item already exists")
	ErrNoUpdateItem         = errors.New("no item has been updated")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrUnknownColumn        = errors.New("unknown column")
)

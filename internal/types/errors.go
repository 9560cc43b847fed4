package types

import "errors"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrPersistence      = errors.New("persistence failed")
	ErrTransport        = errors.New("transport failed")
	ErrUnexpectedInput  = errors.New("unexpected input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternalState    = errors.New("internal state error")
)

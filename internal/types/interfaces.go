// internal/types/interfaces.go
package types

import (
	"context"
)

// Channel delivers outbound messages to a conversation.
type Channel interface {
	SendText(ctx context.Context, key SessionKey, text string, kb Keyboard) error
	SendImage(ctx context.Context, key SessionKey, imageRef, caption string, kb Keyboard) error
}

// DocumentStore is a remote key/content store. GetDocument returns
// ErrDocumentNotFound when the named document does not exist.
type DocumentStore interface {
	GetDocument(ctx context.Context, name string) ([]byte, error)
	PutDocument(ctx context.Context, name string, content []byte) error
}

// internal/delivery/registry.go
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/kernel6/internal/types"
)

// Registry routes outbound messages to the channel registered for the
// session key prefix (e.g. "telegram:"). It is itself a types.Channel.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]types.Channel
}

var _ types.Channel = (*Registry)(nil)

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]types.Channel),
	}
}

// Register adds a channel for session keys starting with prefix.
func (r *Registry) Register(prefix string, ch types.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[prefix] = ch
}

func (r *Registry) lookup(key types.SessionKey) (types.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ch, ok := r.channels[key.Prefix()]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("%w: no delivery channel for session key: %s", types.ErrTransport, key)
}

// SendText delivers a text message through the matching channel.
func (r *Registry) SendText(ctx context.Context, key types.SessionKey, text string, kb types.Keyboard) error {
	ch, err := r.lookup(key)
	if err != nil {
		return err
	}
	return ch.SendText(ctx, key, text, kb)
}

// SendImage delivers an image through the matching channel.
func (r *Registry) SendImage(ctx context.Context, key types.SessionKey, imageRef, caption string, kb types.Keyboard) error {
	ch, err := r.lookup(key)
	if err != nil {
		return err
	}
	return ch.SendImage(ctx, key, imageRef, caption, kb)
}

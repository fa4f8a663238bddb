// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Import slot registry: one in-flight mutation per (workspace, entry)

package locks

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrBusy is returned when another operation already holds the slot
var ErrBusy = errors.New("import slot busy")

// Slot is a held reservation. Release is idempotent.
type Slot interface {
	Release()
}

// Registry hands out exclusive slots keyed by workspace and entry name
type Registry interface {
	Acquire(ctx context.Context, workspace, name string) (Slot, error)
}

// SlotKey joins a workspace and an entry name
func SlotKey(workspace, name string) string {
	return strings.TrimSpace(workspace) + "\x00" + strings.TrimSpace(name)
}

// Local is an in-process registry
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal creates an empty in-process registry
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// Acquire reserves the slot or returns ErrBusy without waiting
func (l *Local) Acquire(ctx context.Context, workspace, name string) (Slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := SlotKey(workspace, name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, ErrBusy
	}
	l.held[key] = struct{}{}
	return &localSlot{registry: l, key: key}, nil
}

type localSlot struct {
	registry *Local
	key      string
	once     sync.Once
}

func (s *localSlot) Release() {
	s.once.Do(func() {
		s.registry.mu.Lock()
		delete(s.registry.held, s.key)
		s.registry.mu.Unlock()
	})
}

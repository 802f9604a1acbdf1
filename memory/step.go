package memory

import (
	"context"
	"errors"
	"fmt"

	modular "github.com/Emilio-01-T/Modular-2"
)

// Operations accepted by the memory step.
const (
	OpLoad   = "load"
	OpAppend = "append"
	OpClear  = "clear"
)

// ErrUnknownOp is returned for an "op" other than load, append or clear.
var ErrUnknownOp = errors.New("unknown memory operation")

// Runnable exposes a Store as a step. Map inputs select an operation:
//
//	{op: load}                                  returns the transcript
//	{op: append, role: assistant, content: ...} appends and returns the transcript
//	{op: clear}                                 empties the session and returns ""
//
// A "session" key overrides the default session. Any other input is appended
// as a user message.
type Runnable struct {
	name    string
	store   Store
	session string
}

var _ modular.Runnable = (*Runnable)(nil)

// NewRunnable creates a memory step over store. The session defaults to name.
func NewRunnable(name string, store Store) *Runnable {
	return &Runnable{name: name, store: store, session: name}
}

// WithSession sets the default session key.
func (r *Runnable) WithSession(session string) *Runnable {
	r.session = session
	return r
}

// Store returns the backing store.
func (r *Runnable) Store() Store {
	return r.store
}

// Execute implements modular.Runnable.
func (r *Runnable) Execute(ctx context.Context, input any) (any, error) {
	op, role, content, session := OpAppend, RoleUser, modular.Text(input), r.session
	if m, ok := input.(map[string]any); ok {
		if v, ok := m["op"].(string); ok {
			op = v
		}
		if v, ok := m["role"].(string); ok && v != "" {
			role = v
		}
		if v, ok := m["content"]; ok {
			content = modular.Text(v)
		}
		if v, ok := m["session"].(string); ok && v != "" {
			session = v
		}
	}

	switch op {
	case OpLoad:
	case OpAppend:
		if err := r.store.Append(ctx, session, Message{Role: role, Content: content}); err != nil {
			return nil, fmt.Errorf("memory %q: %w", r.name, err)
		}
	case OpClear:
		if err := r.store.Clear(ctx, session); err != nil {
			return nil, fmt.Errorf("memory %q: %w", r.name, err)
		}
		return "", nil
	default:
		return nil, fmt.Errorf("memory %q: %w: %q", r.name, ErrUnknownOp, op)
	}

	msgs, err := r.store.Messages(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("memory %q: %w", r.name, err)
	}
	return Transcript(msgs), nil
}

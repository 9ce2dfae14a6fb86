package isolation

import (
	"sync"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

type frame struct {
	cookie plugins.Cookie
	ctx    *Context
}

// Stack is the process-wide stack of activated contexts. Activations must be
// undone in reverse order.
type Stack struct {
	mu     sync.Mutex
	frames []frame
	next   plugins.Cookie
}

// NewStack returns an empty activation stack
func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) push(ctx *Context) plugins.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.frames = append(s.frames, frame{cookie: s.next, ctx: ctx})
	return s.next
}

func (s *Stack) pop(cookie plugins.Cookie, ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return plugins.NewStatusError(StatusInvalidDeactivation, "no context is active")
	}

	top := s.frames[len(s.frames)-1]
	if top.cookie != cookie || top.ctx != ctx {
		for _, f := range s.frames {
			if f.cookie == cookie {
				return plugins.NewStatusError(StatusEarlyDeactivation,
					"context %d deactivated while a later context is still active", cookie)
			}
		}
		return plugins.NewStatusError(StatusInvalidDeactivation, "unknown activation cookie %d", cookie)
	}

	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Depth returns the number of active contexts
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.frames)
}

// Current returns the scope of the innermost active context, or the default
// scope when none is active
func (s *Stack) Current() plugins.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return plugins.DefaultScope
	}
	return s.frames[len(s.frames)-1].ctx
}

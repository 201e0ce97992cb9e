package session

import "context"

type contextKey struct{}

// NewContext returns a context carrying the session state. Agents install
// their state before executing tools so state-mutating tools can reach it.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the session state installed by NewContext.
func FromContext(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(contextKey{}).(*State)
	return s, ok && s != nil
}

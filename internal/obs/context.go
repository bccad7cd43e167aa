package obs

import "context"

type routePatternKey struct{}

type terminalIDKey struct{}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTerminalID annotates the context with the resolved terminal identity so
// request logs can attribute staging traffic without importing the terminal
// package.
func WithTerminalID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, terminalIDKey{}, id)
}

// TerminalIDFromContext extracts the terminal id recorded by the gate middleware.
func TerminalIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(terminalIDKey{}).(string); ok {
		return v
	}
	return ""
}

package runner

import (
	"context"
	"strings"
)

// InputInterceptor inspects or rewrites a raw utterance before it is submitted.
// Returning an error rejects the input; the user is asked again.
type InputInterceptor func(ctx context.Context, input string) (string, error)

// MultiInterceptor chains multiple interceptors.
func MultiInterceptor(interceptors ...InputInterceptor) InputInterceptor {
	return func(ctx context.Context, input string) (string, error) {
		for _, interceptor := range interceptors {
			var err error
			if input, err = interceptor(ctx, input); err != nil {
				return "", err
			}
		}
		return input, nil
	}
}

// SanitizeMiddleware rejects oversized or invalid input and strips control characters.
func SanitizeMiddleware() InputInterceptor {
	return func(ctx context.Context, input string) (string, error) {
		return SanitizeInput(input)
	}
}

// AliasMiddleware replaces exact (case-insensitive, trimmed) matches with their target,
// e.g. menu numbers with the action they stand for.
func AliasMiddleware(aliases map[string]string) InputInterceptor {
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return func(ctx context.Context, input string) (string, error) {
		if target, ok := normalized[strings.ToLower(strings.TrimSpace(input))]; ok {
			return target, nil
		}
		return input, nil
	}
}

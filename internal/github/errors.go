package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/ryo246912/gh-review-triage/internal/apperr"
)

// classifyError maps a go-gh or transport error to an apperr kind.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var httpErr *api.HTTPError
	var gqlErr *api.GraphQLError
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("failed to %s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Transient(op, err)
	case errors.As(err, &httpErr):
		return apperr.New(httpKind(httpErr), op, err)
	case errors.As(err, &gqlErr):
		return apperr.New(graphQLKind(gqlErr), op, err)
	case errors.As(err, &netErr):
		return apperr.Transient(op, err)
	case isGraphQLStatusError(err):
		return apperr.Transient(op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// isGraphQLStatusError detects the plain error shurcooL-graphql returns for
// 5xx and 429 responses.
func isGraphQLStatusError(err error) bool {
	msg := err.Error()
	if !strings.Contains(msg, "non-200 OK status code: ") {
		return false
	}
	return strings.Contains(msg, "status code: 5") || strings.Contains(msg, "status code: 429")
}

func httpKind(err *api.HTTPError) apperr.Kind {
	switch {
	case err.StatusCode == http.StatusTooManyRequests:
		return apperr.KindTransient
	case err.StatusCode == http.StatusForbidden && isRateLimited(err):
		return apperr.KindTransient
	case err.StatusCode == http.StatusUnauthorized, err.StatusCode == http.StatusForbidden:
		return apperr.KindPermission
	case err.StatusCode == http.StatusNotFound:
		return apperr.KindNotFound
	case err.StatusCode >= 500:
		return apperr.KindTransient
	}
	return apperr.KindInternal
}

func isRateLimited(err *api.HTTPError) bool {
	if err.Headers.Get("X-RateLimit-Remaining") == "0" || err.Headers.Get("Retry-After") != "" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Message), "rate limit")
}

func graphQLKind(err *api.GraphQLError) apperr.Kind {
	for _, item := range err.Errors {
		switch item.Type {
		case "NOT_FOUND":
			return apperr.KindNotFound
		case "FORBIDDEN", "INSUFFICIENT_SCOPES":
			return apperr.KindPermission
		case "RATE_LIMITED":
			return apperr.KindTransient
		}
	}
	return apperr.KindInternal
}

func notFoundThread(threadID string) error {
	return apperr.NotFound("review thread %s not found", threadID)
}

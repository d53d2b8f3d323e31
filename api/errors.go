package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/poiesic/graphqa/core"
)

var (
	// ErrAskerRequired is returned when no question answerer is provided.
	ErrAskerRequired = errors.New("asker required")

	errInvalidJSON   = errors.New("request body is not valid JSON")
	errEmptyQuestion = errors.New("question is required")
)

// statusOf maps err to a status code, a kind name and a message that never
// includes backend detail.
func statusOf(err error) (int, string, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "the request timed out"
	case errors.Is(err, context.Canceled):
		return 499, "canceled", "the request was canceled"
	}

	return describe(core.KindOf(err), err)
}

// causeOf names the failure behind a fused request that could not combine
// its answers. It returns empty strings for any other error.
func causeOf(err error) (string, string) {
	if core.KindOf(err) != core.KindFusionInputMissing {
		return "", ""
	}
	cause := core.CauseKind(err)
	if cause == core.KindFusionInputMissing || cause == core.KindUnknown {
		return "", ""
	}
	_, kind, message := describe(cause, err)
	return kind, message
}

func describe(kind core.Kind, err error) (int, string, string) {
	switch kind {
	case core.KindInvalidRequest:
		return http.StatusBadRequest, kind.String(), invalidRequestMessage(err)
	case core.KindQueryGeneration:
		return http.StatusUnprocessableEntity, kind.String(), "could not translate the question into a valid graph query"
	case core.KindIndexUnavailable:
		return http.StatusServiceUnavailable, kind.String(), "the similarity index is unavailable"
	case core.KindDatabaseConnection:
		if errors.Is(err, core.ErrAuthentication) {
			return http.StatusBadGateway, kind.String(), "the graph database rejected the configured credentials"
		}
		return http.StatusServiceUnavailable, kind.String(), "the graph database is unavailable"
	case core.KindQueryExecution:
		return http.StatusBadGateway, kind.String(), "the graph query failed"
	case core.KindModelInvocation:
		return http.StatusBadGateway, kind.String(), "the language model could not be reached"
	case core.KindFusionInputMissing:
		return http.StatusBadGateway, kind.String(), "a retrieval pipeline failed, so the answers could not be combined"
	}
	return http.StatusInternalServerError, core.KindUnknown.String(), "internal error"
}

func invalidRequestMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyQuestion), errors.Is(err, errEmptyQuestion):
		return errEmptyQuestion.Error()
	case errors.Is(err, core.ErrInvalidMode):
		return "mode must be one of structured, similarity or fused"
	case errors.Is(err, errInvalidJSON):
		return errInvalidJSON.Error()
	}
	return "invalid request"
}

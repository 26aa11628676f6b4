package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		unsupportedFilterHandler,
		sentinelHandler(filter.ErrUnsupportedOperator, http.StatusBadRequest, CodeUnsupportedFilter),
		sentinelHandler(filter.ErrInvalidLiteral, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(filter.ErrInvalidExpression, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(vecstore.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(vecstore.ErrConversion, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(vecstore.ErrDimensionMismatch, http.StatusBadRequest, CodeDimensionMismatch),
		sentinelHandler(domain.ErrInputTooLarge, http.StatusBadRequest, CodeInputTooLarge),
		sentinelHandler(vecstore.ErrDuplicateID, http.StatusConflict, CodeDocumentExists),
		sentinelHandler(vecstore.ErrNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(vecstore.ErrSchemaInit, http.StatusServiceUnavailable, CodeSchemaNotReady),
	}
}

// sentinelMessages are safe to show to clients verbatim.
var sentinelMessages = []error{
	vecstore.ErrInvalidRequest,
	vecstore.ErrDimensionMismatch,
	vecstore.ErrDuplicateID,
	vecstore.ErrNotFound,
	domain.ErrInputTooLarge,
	domain.ErrEmbeddingProviderError,
}

// safeMessage returns the most specific client-safe message for err.
// Validation errors carry user input only, so they are returned whole.
func safeMessage(err error) string {
	if errors.Is(err, vecstore.ErrInvalidRequest) || errors.Is(err, vecstore.ErrConversion) ||
		errors.Is(err, filter.ErrInvalidLiteral) || errors.Is(err, filter.ErrInvalidExpression) ||
		errors.Is(err, filter.ErrUnsupportedOperator) {
		return err.Error()
	}
	for _, s := range sentinelMessages {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeMessage(err))
		return true
	}
}

// unsupportedFilterHandler reports the rejected field and the allow-list.
func unsupportedFilterHandler(w http.ResponseWriter, err error) bool {
	var ufe *filter.UnsupportedFilterError
	if !errors.As(err, &ufe) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeUnsupportedFilter,
		Message: "field is not filterable",
		Field:   ufe.Field,
		Allowed: ufe.Allowed,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("Request rejected", zap.Error(err))
			return
		}
	}
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorCode pairs a domain error with its gRPC code and wire name.
type errorCode struct {
	target error
	code   codes.Code
	name   string
}

var errorCodes = []errorCode{
	{e.ErrNotFound, codes.NotFound, "not_found"},
	{e.ErrInvalidInput, codes.InvalidArgument, "invalid_input"},
	{e.ErrDuplicateName, codes.AlreadyExists, "already_exists"},
	{e.ErrUnauthenticated, codes.Unauthenticated, "unauthenticated"},
	{e.ErrForbidden, codes.PermissionDenied, "forbidden"},
	{e.ErrPaymentRequired, codes.FailedPrecondition, "payment_required"},
	{e.ErrInvalidTransition, codes.Aborted, "invalid_transition"},
	{e.ErrConflict, codes.Aborted, "conflict"},
}

func classify(err error) (codes.Code, string) {
	for _, c := range errorCodes {
		if errors.Is(err, c.target) {
			return c.code, c.name
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded, "timeout"
	case errors.Is(err, context.Canceled):
		return codes.Canceled, "canceled"
	}
	return codes.Internal, "internal"
}

// mapServiceError maps domain or repository errors to gRPC status errors.
// Internal errors never leak their message.
func mapServiceError(err error) error {
	code, _ := classify(err)
	if code == codes.Internal {
		return status.Error(codes.Internal, "internal server error")
	}
	return status.Error(code, publicMessage(err))
}

// publicMessage drops the "failed to ..." prefixes added on the way up.
func publicMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "failed to "); i >= 0 {
		if j := strings.Index(msg[i:], ": "); j >= 0 {
			msg = msg[i+j+2:]
		}
	}
	return msg
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders err as the JSON error envelope. Status codes follow the
// gRPC mapping except for payment required.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code, name := classify(err)
	httpStatus := runtime.HTTPStatusFromCode(code)
	if errors.Is(err, e.ErrPaymentRequired) {
		httpStatus = http.StatusPaymentRequired
	}

	message := publicMessage(err)
	if code == codes.Internal {
		logger.Error("Request failed", zap.Error(err))
		message = "internal server error"
	}
	writeJSON(w, httpStatus, errorBody{Error: errorDetail{Code: name, Message: message}})
}

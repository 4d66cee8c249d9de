package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrReportingFailed is returned whenever a completion could not be delivered. The cause is wrapped
// but callers are not expected to distinguish between causes, redelivery is up to the coordinator.
var ErrReportingFailed = errors.New("reporting completion failed")

type TransportFailure int

const (
	TransportUnexpected TransportFailure = iota
	TransportUnavailable
	TransportCanceled
)

func (f TransportFailure) String() string {
	switch f {
	case TransportUnavailable:
		return "unavailable"
	case TransportCanceled:
		return "canceled"
	default:
		return "unexpected"
	}
}

// ClassifyTransportError maps an error returned by a CompletionReporter to a failure class.
func ClassifyTransportError(err error) TransportFailure {
	switch {
	case errors.Is(err, context.Canceled):
		return TransportCanceled
	case errors.Is(err, syscall.ECONNREFUSED):
		return TransportUnavailable
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable:
			return TransportUnavailable
		case codes.Canceled:
			return TransportCanceled
		}
	}

	return TransportUnexpected
}

// HandleReportingError logs a failed completion with a message per failure class and returns it
// wrapped in ErrReportingFailed.
func HandleReportingError(
	ctx context.Context, logger *slog.Logger, endpoint string, kind core.WorkItemKind, instanceID string, err error,
) (TransportFailure, error) {
	failure := ClassifyTransportError(err)

	attrs := []any{
		log.EndpointKey, endpoint,
		log.WorkItemKindKey, kind.String(),
		log.InstanceIDKey, instanceID,
		"error", err,
	}

	switch failure {
	case TransportUnavailable:
		logger.WarnContext(ctx, "coordinator unavailable, completion not delivered", attrs...)
	case TransportCanceled:
		logger.WarnContext(ctx, "coordinator disconnected while completion was in flight", attrs...)
	default:
		logger.ErrorContext(ctx, "unexpected failure reporting completion", attrs...)
	}

	return failure, fmt.Errorf("%w: %w", ErrReportingFailed, err)
}

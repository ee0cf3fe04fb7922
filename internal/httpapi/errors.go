package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dwikikusuma/storefront/pkg/apperr"
)

type errorBody struct {
	Code      string `json:"code"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	ProductID string `json:"product_id,omitempty"`
	Available *int64 `json:"available,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// httpStatusFromGRPC maps an error carrying a gRPC status to an HTTP status,
// a stable code string and a client-safe message.
func httpStatusFromGRPC(err error) (int, string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "UNAVAILABLE", "request timed out"
	}

	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT", st.Message()
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", st.Message()
	case codes.FailedPrecondition:
		return http.StatusConflict, "FAILED_PRECONDITION", st.Message()
	case codes.ResourceExhausted:
		return http.StatusConflict, "RESOURCE_EXHAUSTED", st.Message()
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "UNAUTHENTICATED", st.Message()
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable, "UNAVAILABLE", st.Message()
	case codes.Canceled:
		return 499, "CANCELED", st.Message()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}

func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	errors.As(err, &ae)

	// an unwrapped *apperr.Error keeps the status message free of wrapping text
	statusErr := err
	if ae != nil {
		statusErr = ae
	}
	httpStatus, code, msg := httpStatusFromGRPC(statusErr)
	body := errorBody{Code: code, Message: msg}

	if ae != nil {
		body.Reason = ae.Kind.String()
		body.ProductID = ae.ProductID
		if ae.Kind == apperr.OutOfStock {
			available := ae.Available
			body.Available = &available
		}
		body.Retryable = apperr.IsRetryable(err)
	}
	if httpStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(httpStatus, gin.H{"error": body})
}

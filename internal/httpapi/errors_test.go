package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dwikikusuma/storefront/pkg/apperr"
)

func TestHTTPStatusFromGRPC(t *testing.T) {
	t.Run("InvalidArgument -> 400", func(t *testing.T) {
		err := status.Error(codes.InvalidArgument, "bad")
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusBadRequest || gotCode != "INVALID_ARGUMENT" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("NotFound -> 404", func(t *testing.T) {
		err := status.Error(codes.NotFound, "missing")
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusNotFound || gotCode != "NOT_FOUND" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("Unavailable -> 503", func(t *testing.T) {
		err := status.Error(codes.Unavailable, "down")
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusServiceUnavailable || gotCode != "UNAVAILABLE" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("DeadlineExceeded -> 503", func(t *testing.T) {
		err := status.Error(codes.DeadlineExceeded, "timeout")
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusServiceUnavailable || gotCode != "UNAVAILABLE" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("FailedPrecondition -> 409", func(t *testing.T) {
		err := status.Error(codes.FailedPrecondition, "empty cart")
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusConflict || gotCode != "FAILED_PRECONDITION" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("out of stock -> 409", func(t *testing.T) {
		err := fmt.Errorf("checkout: %w", apperr.NoStock("inventory.Reserve", "p1", 2))
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusConflict || gotCode != "RESOURCE_EXHAUSTED" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})

	t.Run("internal apperr hides its message", func(t *testing.T) {
		err := apperr.Wrap(apperr.Internal, "order.Insert", errors.New("pq: relation does not exist"))
		gotStatus, gotCode, gotMsg := httpStatusFromGRPC(err)
		if gotStatus != http.StatusInternalServerError || gotCode != "INTERNAL" || gotMsg != "internal error" {
			t.Fatalf("got (%d,%s,%s)", gotStatus, gotCode, gotMsg)
		}
	})

	t.Run("non-grpc error -> 500", func(t *testing.T) {
		err := errors.New("boom")
		gotStatus, gotCode, _ := httpStatusFromGRPC(err)
		if gotStatus != http.StatusInternalServerError || gotCode != "INTERNAL" {
			t.Fatalf("got (%d,%s)", gotStatus, gotCode)
		}
	})
}

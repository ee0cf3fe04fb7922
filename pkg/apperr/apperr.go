// Package apperr defines the error kinds returned by the storefront services.
//
// Every expected failure (missing cart, unavailable product, insufficient
// stock, ...) is an *Error carrying a Kind, so callers branch with KindOf or
// errors.As instead of matching strings. *Error implements GRPCStatus, which
// lets transports obtain a code with status.Code(err).
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Kind uint8

const (
	Internal Kind = iota
	NotFound
	InvalidArgument
	ProductUnavailable
	OutOfStock
	EmptyCart
	TransientStorage
	PostCommitCleanup
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case ProductUnavailable:
		return "product_unavailable"
	case OutOfStock:
		return "out_of_stock"
	case EmptyCart:
		return "empty_cart"
	case TransientStorage:
		return "transient_storage"
	case PostCommitCleanup:
		return "post_commit_cleanup"
	default:
		return "internal"
	}
}

// Code is the gRPC code a transport reports for the kind.
func (k Kind) Code() codes.Code {
	switch k {
	case NotFound:
		return codes.NotFound
	case InvalidArgument:
		return codes.InvalidArgument
	case ProductUnavailable, EmptyCart:
		return codes.FailedPrecondition
	case OutOfStock:
		return codes.ResourceExhausted
	case TransientStorage:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "cart.ApplyItemUpdates".
	Op string
	// ProductID is set for ProductUnavailable and OutOfStock.
	ProductID string
	// Available is the stock observed when an OutOfStock error was raised.
	Available int64
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.ProductID != "" {
		fmt.Fprintf(&b, " (product %s", e.ProductID)
		if e.Kind == OutOfStock {
			fmt.Fprintf(&b, ", available %d", e.Available)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: OutOfStock}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.ProductID == "" || t.ProductID == e.ProductID)
}

func (e *Error) GRPCStatus() *status.Status {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.ProductID != "" {
		msg = fmt.Sprintf("%s: product %s", msg, e.ProductID)
	}
	if e.Kind == Internal {
		msg = "internal error"
	}
	return status.New(e.Kind.Code(), msg)
}

func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFoundf(op, format string, args ...any) *Error {
	return &Error{Kind: NotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Invalidf(op, format string, args ...any) *Error {
	return &Error{Kind: InvalidArgument, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Unavailable(op, productID string) *Error {
	return &Error{Kind: ProductUnavailable, Op: op, ProductID: productID, Msg: "product is not available"}
}

func NoStock(op, productID string, available int64) *Error {
	return &Error{Kind: OutOfStock, Op: op, ProductID: productID, Available: available, Msg: "not enough stock"}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether a caller may retry the same request unchanged.
func IsRetryable(err error) bool {
	return IsKind(err, TransientStorage)
}

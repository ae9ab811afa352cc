package api

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/floroz/bazaar/pkg/apperr"
	"github.com/floroz/bazaar/pkg/marketv1"
	"github.com/floroz/bazaar/pkg/session"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
	"github.com/floroz/bazaar/services/market-service/internal/domain/users"
)

// codeOf maps domain error categories to Connect codes. Order matters: a
// bid conflict is also a validation error.
func codeOf(err error) connect.Code {
	var rejected *auctions.BidRejectedError
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, users.ErrInvalidCredentials):
		return connect.CodeUnauthenticated
	case errors.Is(err, apperr.ErrConflict):
		return connect.CodeAborted
	case errors.As(err, &rejected):
		return connect.CodeFailedPrecondition
	case errors.Is(err, apperr.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return connect.CodePermissionDenied
	case errors.Is(err, apperr.ErrValidation):
		return connect.CodeInvalidArgument
	case errors.Is(err, apperr.ErrRemote):
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts err and attaches the current price of a rejected
// bid as a google.protobuf.Struct detail.
func toConnectError(err error) *connect.Error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	cerr = connect.NewError(codeOf(err), err)

	var rejected *auctions.BidRejectedError
	if errors.As(err, &rejected) {
		detail, detailErr := structpb.NewStruct(map[string]any{
			marketv1.DetailCurrentPrice: float64(rejected.CurrentPrice),
		})
		if detailErr == nil {
			if d, dErr := connect.NewErrorDetail(detail); dErr == nil {
				cerr.AddDetail(d)
			}
		}
	}
	return cerr
}

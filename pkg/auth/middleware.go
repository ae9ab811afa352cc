package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/floroz/bazaar/pkg/session"
)

const (
	tokenHeader = "Authorization"
	tokenPrefix = "Bearer "
)

// Interceptor verifies bearer tokens and attaches an authenticated
// session.Session to the request context. Procedures listed as public
// may be called without a token.
type Interceptor struct {
	signer *Signer
	public map[string]bool
}

var _ connect.Interceptor = (*Interceptor)(nil)

// NewAuthInterceptor creates a ConnectRPC interceptor for authentication.
func NewAuthInterceptor(signer *Signer, publicProcedures ...string) *Interceptor {
	public := make(map[string]bool, len(publicProcedures))
	for _, p := range publicProcedures {
		public[p] = true
	}
	return &Interceptor{signer: signer, public: public}
}

func (i *Interceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, err := i.authenticate(ctx, req.Spec().Procedure, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *Interceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *Interceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := i.authenticate(ctx, conn.Spec().Procedure, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (i *Interceptor) authenticate(ctx context.Context, procedure string, header http.Header) (context.Context, error) {
	authHeader := header.Get(tokenHeader)
	if authHeader == "" {
		if i.public[procedure] {
			return ctx, nil
		}
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing authorization header"))
	}

	if !strings.HasPrefix(authHeader, tokenPrefix) {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid authorization header format"))
	}

	token := strings.TrimPrefix(authHeader, tokenPrefix)
	claims, err := i.signer.ValidateToken(token)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid or expired token"))
	}

	return session.WithSession(ctx, session.NewAuthenticated(claims.Username, token, claims.ExpiresAt.Time)), nil
}

// SetBearer adds the token of an authenticated session to outgoing headers.
func SetBearer(header http.Header, token string) {
	if token != "" {
		header.Set(tokenHeader, tokenPrefix+token)
	}
}

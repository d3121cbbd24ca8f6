package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Metadata keys, matching what the publisher's per-RPC credentials send.
const (
	mdAccessToken = "accesstoken"
	mdInstanceURL = "instanceurl"
	mdTenantID    = "tenantid"
)

// TokenValidator reports whether an access token was issued and is still valid.
type TokenValidator interface {
	ValidToken(token string) bool
}

// SessionUnary returns a unary server interceptor that requires accesstoken, instanceurl, and
// tenantid metadata, validates the token, checks the tenant, and stores the Session in context.
// publicMethods is the set of full method names that skip the check (e.g. health).
func SessionUnary(tokens TokenValidator, tenantID string, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		s, ok := extractSession(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing accesstoken, instanceurl or tenantid metadata")
		}
		if !tokens.ValidToken(s.AccessToken) {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired access token")
		}
		if tenantID != "" && s.TenantID != tenantID {
			return nil, status.Error(codes.PermissionDenied, "tenant mismatch")
		}
		return handler(WithSession(ctx, s), req)
	}
}

// extractSession returns the session from ctx metadata; false if any key is missing or blank.
func extractSession(ctx context.Context) (Session, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Session{}, false
	}
	s := Session{
		AccessToken: first(md, mdAccessToken),
		InstanceURL: first(md, mdInstanceURL),
		TenantID:    first(md, mdTenantID),
	}
	if s.AccessToken == "" || s.InstanceURL == "" || s.TenantID == "" {
		return Session{}, false
	}
	return s, true
}

func first(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"labhub/internal/models"
)

// withAuth resolves a bearer token into a Principal. Requests without a
// token pass through anonymously; unknown or expired tokens are rejected.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := s.accountService.AuthenticateToken(r.Context(), token, s.now())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if principal == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid or expired token")))
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), *principal)))
	})
}

// requireRole admits callers holding one of roles. No roles means any
// authenticated caller.
func (s *Server) requireRole(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, principal.Role) {
			s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("%s role required", roles[0])))
			return
		}
		next(w, r)
	}
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(next, models.RoleAdmin)
}

func (s *Server) studentOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(next, models.RoleStudent)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, authTypeBearer) {
		return ""
	}
	return strings.TrimSpace(token)
}

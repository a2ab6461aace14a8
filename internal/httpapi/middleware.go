package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const (
	ctxKeyToken ctxKey = iota
	ctxKeyUserID
)

func tokenFromRequest(r *http.Request) string {
	return r.Header.Get("Authorization")
}

func classParam(r *http.Request) string {
	return chi.URLParam(r, "class_number")
}

// requireAdmin is the Admin layer: is_admin(token) required.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}
		ok, err := a.auth.IsAdmin(r.Context(), token)
		if err != nil {
			a.internalError(w, err)
			return
		}
		if !ok {
			forbidden(w)
			return
		}
		identified, ok := a.withIdentity(w, r, token)
		if !ok {
			return
		}
		next.ServeHTTP(w, identified)
	})
}

// requireInstructor is the Instructor layer: instructor-of-class or admin;
// with no class param present, admin only.
func (a *API) requireInstructor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}

		class := classParam(r)
		var ok bool
		var err error
		if class != "" {
			ok, err = a.auth.IsInstructor(r.Context(), token, class)
		} else {
			ok, err = a.auth.IsAdmin(r.Context(), token)
		}
		if err != nil {
			a.internalError(w, err)
			return
		}
		if !ok {
			ok, err = a.auth.IsAdmin(r.Context(), token)
			if err != nil {
				a.internalError(w, err)
				return
			}
		}
		if !ok {
			forbidden(w)
			return
		}
		identified, ok := a.withIdentity(w, r, token)
		if !ok {
			return
		}
		next.ServeHTTP(w, identified)
	})
}

// requireStudent is the Student layer: student-or-instructor-of-class or
// admin; with no class param present, admin only.
func (a *API) requireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}

		class := classParam(r)
		if class == "" {
			ok, err := a.auth.IsAdmin(r.Context(), token)
			if err != nil {
				a.internalError(w, err)
				return
			}
			if !ok {
				forbidden(w)
				return
			}
			identified, ok := a.withIdentity(w, r, token)
			if !ok {
				return
			}
			next.ServeHTTP(w, identified)
			return
		}

		isStudent, err := a.auth.IsStudent(r.Context(), token, class)
		if err != nil {
			a.internalError(w, err)
			return
		}
		if !isStudent {
			isInstructor, err := a.auth.IsInstructor(r.Context(), token, class)
			if err != nil {
				a.internalError(w, err)
				return
			}
			if !isInstructor {
				isAdmin, err := a.auth.IsAdmin(r.Context(), token)
				if err != nil {
					a.internalError(w, err)
					return
				}
				if !isAdmin {
					forbidden(w)
					return
				}
			}
		}
		identified, ok := a.withIdentity(w, r, token)
		if !ok {
			return
		}
		next.ServeHTTP(w, identified)
	})
}

// requireAuthenticated is the Any-authenticated layer: valid(token), with
// role-hint headers attached to the response for client rendering.
func (a *API) requireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}

		userID, ok, err := a.auth.UserID(r.Context(), token)
		if err != nil {
			a.internalError(w, err)
			return
		}
		if !ok {
			unauthorized(w)
			return
		}

		isAdmin, err := a.auth.IsAdmin(r.Context(), token)
		if err != nil {
			a.internalError(w, err)
			return
		}
		w.Header().Set("admin", boolString(isAdmin))
		w.Header().Set("instructor", boolString(false))
		w.Header().Set("student", boolString(!isAdmin))

		next.ServeHTTP(w, withIdentityValues(r, token, userID))
	})
}

// withIdentity resolves token's owning user id and stashes both the
// token and user id in the request context. It writes the error
// response itself and returns ok=false when resolution fails, so
// callers can bail out immediately.
func (a *API) withIdentity(w http.ResponseWriter, r *http.Request, token string) (*http.Request, bool) {
	userID, found, err := a.auth.UserID(r.Context(), token)
	if err != nil {
		a.internalError(w, err)
		return nil, false
	}
	if !found {
		unauthorized(w)
		return nil, false
	}
	return withIdentityValues(r, token, userID), true
}

func withIdentityValues(r *http.Request, token string, userID int) *http.Request {
	ctx := context.WithValue(r.Context(), ctxKeyToken, token)
	ctx = context.WithValue(ctx, ctxKeyUserID, userID)
	return r.WithContext(ctx)
}

func userIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(int)
	return id, ok
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
)

// Recover turns a handler panic into a 500 PersistenceFailure. http.ErrAbortHandler
// is re-raised so the server aborts the response as intended.
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			m.log.Error(r.Context(), "panic recovered", fmt.Errorf("%v", p), "path", r.URL.Path, "stack", string(debug.Stack()))
			w.Header().Set("Connection", "close")
			errorResponse(w, http.StatusInternalServerError, types.KindPersistence, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}

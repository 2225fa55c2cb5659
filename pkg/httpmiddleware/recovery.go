package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// ServerErrorMessage is the body text of a recovered panic.
const ServerErrorMessage = "Server error."

// Recovery turns a handler panic into a 500 {"msg":"Server error."} and logs
// the panic with its stack. http.ErrAbortHandler is re-raised.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				w.Header().Set("Connection", "close")
				writeMsg(w, http.StatusInternalServerError, ServerErrorMessage)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"babettepos/internal/erp"
	"babettepos/internal/session"
)

type contextKey string

const (
	contextKeySession     contextKey = "pos_session"
	contextKeyRequestInfo contextKey = "request_info"
)

// requestInfo is filled in by inner middleware for the access log.
type requestInfo struct {
	user string
}

// accessLog writes one line per request once the handler is done.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), contextKeyRequestInfo, info)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if info.user != "" {
			fields = append(fields, zap.String("user", info.user))
		}
		if status >= http.StatusInternalServerError {
			s.log.Warn("request", fields...)
			return
		}
		s.log.Info("request", fields...)
	})
}

// requireSession rejects requests without a valid session cookie. A cookie
// that fails to unseal or has expired is cleared.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Load(r)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) {
				s.sessions.Destroy(w)
				s.log.Debug("invalid session cookie", zap.Error(err))
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "Unauthorized",
				"message": "You must be logged in to access this resource",
			})
			return
		}
		if info, ok := r.Context().Value(contextKeyRequestInfo).(*requestInfo); ok {
			info.user = sess.Username
		}
		ctx := context.WithValue(r.Context(), contextKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (session.Data, bool) {
	sess, ok := ctx.Value(contextKeySession).(session.Data)
	return sess, ok
}

func credentials(r *http.Request) erp.Credentials {
	sess, _ := sessionFromContext(r.Context())
	return erp.Credentials{UID: sess.UID, Password: sess.Password}
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr from the
// forwarding headers.
func clientIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

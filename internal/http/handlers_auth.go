package http

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"babettepos/internal/apperr"
	"babettepos/internal/domain"
	"babettepos/internal/erp"
	"babettepos/internal/service/ratelimit"
	"babettepos/internal/session"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=1,max=200"`
}

type userInfo struct {
	UID      int    `json:"uid"`
	Username string `json:"username"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if d := s.limiter.Allow(ratelimit.LoginKey(ip)); !d.Allowed {
		s.log.Warn("login rate limited", zap.String("ip", ip), zap.Int("retry_after", d.RetryAfter))
		s.writeAppError(w, &apperr.RateLimitError{RetryAfter: d.RetryAfter}, "")
		return
	}

	var req loginRequest
	if !s.bind(w, r, &req) {
		return
	}

	event := domain.AuditEvent{Username: req.Username, IP: ip, UserAgent: r.UserAgent()}
	uid, err := s.erp.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		event.Type = domain.AuditLoginFailure
		if errors.Is(err, erp.ErrInvalidCredentials) {
			event.Reason = "Invalid credentials"
			s.recordAudit(event)
			s.log.Warn("login failed", zap.String("username", req.Username), zap.String("ip", ip))
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		event.Reason = "Login error"
		s.recordAudit(event)
		s.log.Error("login error", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := s.sessions.Save(w, session.Data{UID: uid, Username: req.Username, Password: req.Password, LoggedIn: true}); err != nil {
		s.log.Error("save session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	event.Type = domain.AuditLoginSuccess
	event.UID = uid
	s.recordAudit(event)
	s.log.Info("login successful", zap.String("username", req.Username), zap.Int("uid", uid), zap.String("ip", ip))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    userInfo{UID: uid, Username: req.Username},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.Load(r); err == nil {
		s.recordAudit(domain.AuditEvent{
			Type:      domain.AuditLogout,
			UID:       sess.UID,
			Username:  sess.Username,
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		})
	}
	s.sessions.Destroy(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			s.sessions.Destroy(w)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"isLoggedIn": false,
			"user":       nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"isLoggedIn": true,
		"user":       userInfo{UID: sess.UID, Username: sess.Username},
	})
}

func (s *Server) handleEnvInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"erpUrl":          s.cfg.ERP.URL,
		"erpDb":           s.cfg.ERP.DB,
		"appEnv":          s.cfg.Env,
		"isProduction":    s.cfg.ERPLooksProduction(),
		"environmentName": s.cfg.ERPHost(),
	})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": s.audit.ListAudit(limit),
	})
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"babettepos/internal/config"
	"babettepos/internal/domain"
	"babettepos/internal/integrations/auditsink"
	"babettepos/internal/labels"
	"babettepos/internal/metrics"
	"babettepos/internal/service/catalog"
	"babettepos/internal/service/orders"
	"babettepos/internal/service/ratelimit"
	"babettepos/internal/service/vouchers"
	"babettepos/internal/session"
	storepkg "babettepos/internal/store"
)

// Authenticator resolves ERP logins. *erp.Client satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (int, error)
}

type Deps struct {
	Config    config.Config
	ERP       Authenticator
	Sessions  *session.Manager
	Limiter   *ratelimit.Limiter
	Audit     storepkg.AuditStore
	AuditSink *auditsink.Client
	Catalog   *catalog.Service
	Orders    *orders.Service
	Vouchers  *vouchers.Service
	Labels    *labels.Renderer
	Log       *zap.Logger
}

type Server struct {
	cfg       config.Config
	erp       Authenticator
	sessions  *session.Manager
	limiter   *ratelimit.Limiter
	audit     storepkg.AuditStore
	auditSink *auditsink.Client
	catalog   *catalog.Service
	orders    *orders.Service
	vouchers  *vouchers.Service
	labels    *labels.Renderer
	log       *zap.Logger
}

func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:       d.Config,
		erp:       d.ERP,
		sessions:  d.Sessions,
		limiter:   d.Limiter,
		audit:     d.Audit,
		auditSink: d.AuditSink,
		catalog:   d.Catalog,
		orders:    d.Orders,
		vouchers:  d.Vouchers,
		labels:    d.Labels,
		log:       log.Named("http"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.accessLog, middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/api/login", s.handleLogin)
	r.Post("/api/logout", s.handleLogout)
	r.Get("/api/session", s.handleSession)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireSession)
		protected.Get("/api/env-info", s.handleEnvInfo)
		protected.Get("/api/audit", s.handleListAudit)

		protected.Post("/api/products/scan", s.handleScan)
		protected.Post("/api/products/images", s.handleProductImages)
		protected.Post("/api/stock/adjust", s.handleAdjustStock)
		protected.Post("/api/labels/products", s.handleProductLabels)

		protected.Get("/api/orders/pending", s.handlePendingOrders)
		protected.Post("/api/orders/confirm", s.handleConfirmOrder)
		protected.Post("/api/orders/availability", s.handleAvailability)
		protected.Post("/api/orders/confirm-delivery", s.handleConfirmDelivery)
		protected.Post("/api/orders/send-to-shipper", s.handleSendToShipper)
		protected.Post("/api/orders/picking-details", s.handlePickingDetails)
		protected.Post("/api/orders/attachments", s.handleAttachments)
		protected.Post("/api/orders/invoice", s.handleInvoice)
		protected.Post("/api/orders/shipping-label", s.handleShippingLabel)

		protected.Get("/api/customers/search", s.handleSearchCustomers)
		protected.Post("/api/vouchers", s.handleCreateVoucher)
		protected.Post("/api/vouchers/label", s.handleVoucherLabel)
	})

	return r
}

// HTTPServer wraps Router in a listener using the configured timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// recordAudit stores the event and forwards it to the webhook in the
// background.
func (s *Server) recordAudit(event domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	stored := s.audit.AppendAudit(event)
	if s.auditSink == nil || !s.auditSink.Enabled() {
		return
	}
	budget := s.cfg.Audit.Timeout * time.Duration(s.cfg.Audit.MaxRetries+1)
	if budget <= 0 {
		budget = 30 * time.Second
	}
	go func(evt domain.AuditEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()
		if err := s.auditSink.Publish(ctx, evt); err != nil {
			s.log.Warn("audit webhook publish failed", zap.String("event_id", evt.ID), zap.Error(err))
		}
	}(stored)
}

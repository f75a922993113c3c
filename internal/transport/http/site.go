package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/service"
	"github.com/hashicorp/go-hclog"
)

type SiteHandler struct {
	newsletter     service.NewsletterService
	products       service.ProductService
	keepaliveToken string
	logger         hclog.Logger
	now            func() time.Time
}

// NewSiteHandler serves the newsletter sign-up and the keepalive probe.
// An empty keepaliveToken leaves the probe open.
func NewSiteHandler(ns service.NewsletterService, ps service.ProductService, keepaliveToken string, log hclog.Logger) *SiteHandler {
	return &SiteHandler{
		newsletter:     ns,
		products:       ps,
		keepaliveToken: keepaliveToken,
		logger:         log,
		now:            time.Now,
	}
}

// NewsletterRequest is the body of POST /newsletter
//
// swagger:model
type NewsletterRequest struct {
	// required: true
	Email string `json:"email"`
}

// Subscribe handles POST /newsletter
//
// swagger:route POST /newsletter newsletter subscribe
//
// Signs an email address up for the newsletter. Signing up twice is not an error.
//
// Responses:
//
//	200: subscribeResponse
//	201: subscribeResponse
//	400: errorResponse
//	422: errorResponse
//	500: errorResponse
func (h *SiteHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req NewsletterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.logger, domain.E(domain.InvalidInput, "http.Subscribe", "invalid request", err))
		return
	}

	res, err := h.newsletter.Subscribe(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if res.Status == service.SubscriptionCreated {
		status = http.StatusCreated
	}
	writeJSON(w, h.logger, status, res)
}

// KeepaliveResponse reports that the server and its database are reachable
//
// swagger:model
type KeepaliveResponse struct {
	OK bool      `json:"ok"`
	TS time.Time `json:"ts"`
}

// Keepalive handles GET /keepalive
//
// swagger:route GET /keepalive site keepalive
//
// Touches the database so that hosted instances are not suspended.
//
// Responses:
//
//	200: keepaliveResponse
//	401: errorResponse
//	500: errorResponse
func (h *SiteHandler) Keepalive(w http.ResponseWriter, r *http.Request) {
	if h.keepaliveToken != "" {
		token := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.keepaliveToken)) != 1 {
			writeJSON(w, h.logger, http.StatusUnauthorized, ErrorResponse{Kind: "unauthorized", Message: "invalid token"})
			return
		}
	}

	if err := h.products.Ping(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, KeepaliveResponse{OK: true, TS: h.now().UTC()})
}

package http

import (
	_ "embed"
	"net/http"

	"github.com/eveul/storefront/internal/domain"
	websocketTransport "github.com/eveul/storefront/internal/transport/websocket"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

//go:embed swagger.yaml
var swaggerSpec []byte

// Handlers groups everything the router dispatches to. Files may be nil
// when blobs are not kept on local disk.
type Handlers struct {
	Products  *ProductHandler
	Images    *ImageHandler
	Site      *SiteHandler
	Files     *FileHandler
	WebSocket *websocketTransport.Handler
}

// CORSConfig holds configuration for the CORS handler
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // Cache preflight requests
}

func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		MaxAge:         86400, // 24 hours
	}
}

func NewRouter(
	h Handlers,
	validator *domain.Validation,
	logger hclog.Logger,
	cors *CORSConfig,
) http.Handler {
	if cors == nil {
		cors = DefaultCORSConfig()
	}

	router := mux.NewRouter()

	// Create a middleware instance
	mw := NewMiddleware(logger, validator)

	// Apply global middleware
	router.Use(mw.LoggingMiddleware)

	// Non JSON routes
	router.HandleFunc("/ws", h.WebSocket.HandleWebSocket).Methods(http.MethodGet)
	if h.Files != nil {
		router.HandleFunc("/images/{path:.+}", h.Files.GetFile).Methods(http.MethodGet, http.MethodHead)
	}

	// Swagger UI and specification routes
	router.HandleFunc("/swagger.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(swaggerSpec)
	}).Methods(http.MethodGet)

	swaggerOpts := middleware.RedocOpts{SpecURL: "/swagger.yaml", Title: "Eveul storefront API"}
	router.Handle("/docs", middleware.Redoc(swaggerOpts, nil)).Methods(http.MethodGet)

	// Public routes
	api := router.NewRoute().Subrouter()
	api.Use(mw.ContentTypeMiddleware)
	api.Use(handlers.CompressHandler)

	api.HandleFunc("/watches", h.Products.Catalog).Methods(http.MethodGet)
	api.HandleFunc("/watches/{slug}", h.Products.ProductPage).Methods(http.MethodGet)
	api.HandleFunc("/newsletter", h.Site.Subscribe).Methods(http.MethodPost)
	api.HandleFunc("/keepalive", h.Site.Keepalive).Methods(http.MethodGet)

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/products", h.Products.ListProducts).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}", h.Products.GetProduct).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}/status", h.Products.SetStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/products/{id}/publish", h.Products.Publish).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}/unpublish", h.Products.Unpublish).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}/archive", h.Products.Archive).Methods(http.MethodPost)

	// Routes requiring validation middleware (for request body validation)
	admin.Handle("/products", mw.ValidationMiddleware(http.HandlerFunc(h.Products.CreateProduct))).Methods(http.MethodPost)
	admin.Handle("/products/{id}", mw.ValidationMiddleware(http.HandlerFunc(h.Products.UpdateProduct))).Methods(http.MethodPut)

	admin.HandleFunc("/products/{id}/images", h.Images.ListImages).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}/images", h.Images.Upload).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}/images/reconcile", h.Images.Reconcile).Methods(http.MethodPost)
	admin.HandleFunc("/images/{imageId}", h.Images.Patch).Methods(http.MethodPatch)
	admin.HandleFunc("/images/{imageId}", h.Images.Delete).Methods(http.MethodDelete)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cors.AllowedOrigins),
		handlers.AllowedMethods(cors.AllowedMethods),
		handlers.AllowedHeaders(cors.AllowedHeaders),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
		handlers.MaxAge(cors.MaxAge),
	)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.StandardLogger(&hclog.StandardLoggerOptions{ForceLevel: hclog.Error})),
		handlers.PrintRecoveryStack(true),
	)

	return recovery(corsHandler(router))
}

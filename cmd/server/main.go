package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eveul/storefront/internal/cache"
	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/events"
	"github.com/eveul/storefront/internal/imageset"
	"github.com/eveul/storefront/internal/repository"
	"github.com/eveul/storefront/internal/service"
	"github.com/eveul/storefront/internal/storage"
	httpTransport "github.com/eveul/storefront/internal/transport/http"
	websocketTransport "github.com/eveul/storefront/internal/transport/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/nicholasjackson/env"
)

// Environment variables
var (
	bindAddress = env.String("BIND_ADDRESS", false,
		":9090", "Bind address for the server")
	logLevel = env.String("LOG_LEVEL", false,
		"debug", "Log output level for the server [debug, info, trace]")
	databaseURL = env.String("DATABASE_URL", false,
		"", "Postgres connection string, in-memory stores are used when empty")

	storageDriver = env.String("STORAGE_DRIVER", false,
		"local", "Blob store for product images [local, minio]")
	storageBasePath = env.String("STORAGE_BASE_PATH", false,
		"./imagestore", "Directory of the local blob store")
	storagePublicURL = env.String("STORAGE_PUBLIC_URL", false,
		"http://localhost:9090/images", "Public base URL of the local blob store")
	maxUploadBytes = env.Int("MAX_UPLOAD_BYTES", false,
		10<<20, "Largest accepted image upload in bytes")

	minioEndpoint = env.String("MINIO_ENDPOINT", false,
		"localhost:9000", "MinIO or S3 endpoint")
	minioAccessKey = env.String("MINIO_ACCESS_KEY", false,
		"", "MinIO access key")
	minioSecretKey = env.String("MINIO_SECRET_KEY", false,
		"", "MinIO secret key")
	minioBucket = env.String("MINIO_BUCKET", false,
		"product-images", "Bucket holding product images")
	minioUseSSL = env.Bool("MINIO_USE_SSL", false,
		false, "Use TLS to reach MinIO")
	minioPublicURL = env.String("MINIO_PUBLIC_URL", false,
		"", "Public base URL of the bucket, derived from the endpoint when empty")

	redisAddr = env.String("REDIS_ADDR", false,
		"", "Redis address for the catalog cache, an in-memory cache is used when empty")
	redisPassword = env.String("REDIS_PASSWORD", false,
		"", "Redis password")
	cacheTTL = env.Duration("CACHE_TTL", false,
		time.Minute, "How long public catalog reads are cached")

	keepaliveToken = env.String("KEEPALIVE_TOKEN", false,
		"", "Token required by /keepalive, open when empty")
	corsOrigins = env.String("CORS_ORIGINS", false,
		"http://localhost:3000", "Comma separated origins allowed to call the API")
)

func main() {
	// a missing .env file is fine, real environment variables win
	_ = godotenv.Load()
	if err := env.Parse(); err != nil {
		hclog.Default().Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize the logger
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "storefront",
		Level: hclog.LevelFromString(*logLevel),
	})

	// Create a standard logger for the HTTP server
	standardLogger := logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	// Initialize the event bus - this will be shared between services
	eventBus := events.NewEventBus[any]()

	// Relation store
	stores, err := openStores(startCtx, logger)
	if err != nil {
		logger.Error("Unable to open the relation store", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	// Blob store
	blobs, local, err := openBlobStore(startCtx, logger)
	if err != nil {
		logger.Error("Unable to open the blob store", "driver", *storageDriver, "error", err)
		os.Exit(1)
	}

	// Catalog cache
	catalogCache, closeCache, err := openCache(startCtx, logger)
	if err != nil {
		logger.Error("Unable to connect to Redis", "addr", *redisAddr, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// Initialize the validator
	validator := domain.NewValidation()

	ps := service.NewProductService(
		stores.products,
		stores.images,
		catalogCache,
		*cacheTTL,
		validator,
		eventBus,
		logger.Named("product-service"),
	)

	ns := service.NewNewsletterService(
		stores.subscribers,
		validator,
		logger.Named("newsletter-service"),
	)

	manager := imageset.NewManager(
		stores.images,
		stores.products,
		blobs,
		eventBus,
		logger.Named("imageset"),
	)

	origins := splitList(*corsOrigins)

	// Initialize HTTP handlers
	handlers := httpTransport.Handlers{
		Products: httpTransport.NewProductHandler(ps, logger.Named("http-handler")),
		Images:   httpTransport.NewImageHandler(manager, int64(*maxUploadBytes), logger.Named("http-handler")),
		Site:     httpTransport.NewSiteHandler(ns, ps, *keepaliveToken, logger.Named("http-handler")),
		// Initialize the WebSocket handler with the event bus
		WebSocket: websocketTransport.NewHandler(logger.Named("websocket-handler"), eventBus, origins),
	}
	if local != nil {
		handlers.Files = httpTransport.NewFileHandler(logger.Named("files"), local)
	}

	cors := httpTransport.DefaultCORSConfig()
	cors.AllowedOrigins = origins

	// Initialize the router
	router := httpTransport.NewRouter(handlers, validator, logger.Named("http"), cors)

	// Create the HTTP Server
	server := &http.Server{
		Addr:         *bindAddress,
		Handler:      router,
		ErrorLog:     standardLogger,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start the server in a new goroutine
	go func() {
		logger.Info("Starting server", "bind_address", *bindAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Error starting server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down server", "signal", sig)

	// Context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", "error", err)
	}

	// Cleanup services
	if err := ps.Close(); err != nil {
		logger.Error("Error closing product service", "error", err)
	}

	// ends the websocket streams that are still open
	eventBus.Close()
}

type relationStores struct {
	products    repository.ProductRepository
	images      repository.ImageRepository
	subscribers repository.SubscriberRepository
	db          *sql.DB
}

func (s *relationStores) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// openStores connects to Postgres when DATABASE_URL is set and falls back
// to in-memory stores otherwise
func openStores(ctx context.Context, logger hclog.Logger) (*relationStores, error) {
	if *databaseURL == "" {
		logger.Warn("DATABASE_URL is not set, data is kept in memory only")
		return &relationStores{
			products:    repository.NewMemoryProductRepository(),
			images:      repository.NewMemoryImageRepository(),
			subscribers: repository.NewMemorySubscriberRepository(),
		}, nil
	}

	db, err := repository.OpenPostgres(ctx, *databaseURL)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to Postgres")
	return &relationStores{
		products:    repository.NewPostgresProductRepository(db),
		images:      repository.NewPostgresImageRepository(db),
		subscribers: repository.NewPostgresSubscriberRepository(db),
		db:          db,
	}, nil
}

// openBlobStore returns the configured blob store, and the local store
// again when blobs are served by this process
func openBlobStore(ctx context.Context, logger hclog.Logger) (storage.Storage, *storage.Local, error) {
	switch *storageDriver {
	case "local":
		local, err := storage.NewLocal(*storageBasePath, int64(*maxUploadBytes), *storagePublicURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Storing images on disk", "path", *storageBasePath)
		return local, local, nil
	case "minio":
		m, err := storage.NewMinio(ctx, storage.MinioConfig{
			Endpoint:  *minioEndpoint,
			AccessKey: *minioAccessKey,
			SecretKey: *minioSecretKey,
			Bucket:    *minioBucket,
			UseSSL:    *minioUseSSL,
			PublicURL: *minioPublicURL,
		}, logger.Named("minio"))
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	default:
		return nil, nil, errors.New("unknown storage driver " + *storageDriver)
	}
}

func openCache(ctx context.Context, logger hclog.Logger) (cache.Cache, func(), error) {
	if *redisAddr == "" {
		return cache.NewMemory(), func() {}, nil
	}

	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:      *redisAddr,
		Password:  *redisPassword,
		Namespace: "storefront",
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Caching catalog reads in Redis", "addr", *redisAddr)
	return r, func() { r.Close() }, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

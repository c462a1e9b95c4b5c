package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"docudeep-backend/internal/blob"
	localblob "docudeep-backend/internal/blob/local"
	minioblob "docudeep-backend/internal/blob/minio"
	s3blob "docudeep-backend/internal/blob/s3"
	"docudeep-backend/internal/cases"
	"docudeep-backend/internal/grants"
	"docudeep-backend/internal/services/health"
	"docudeep-backend/internal/shared/config"
	"docudeep-backend/internal/shared/metrics"
	"docudeep-backend/internal/shared/server/middleware"
	"docudeep-backend/internal/shared/server/respond"
	"docudeep-backend/internal/shared/storage/db"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	ctx := context.Background()

	store, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authority, localAuthority, grantStore, err := buildAuthority(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	caseSvc := &cases.Service{
		Registry:  registry,
		Blob:      store,
		Authority: authority,
	}
	caseHandler := cases.NewHandler(caseSvc)
	healthSvc := health.NewService()

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	api.GET("/metrics", metrics.Handler())
	caseHandler.RegisterRoutes(api)

	if isDevLike(cfg.Env) && localAuthority != nil {
		resetAll := func(c *gin.Context) error {
			reqCtx := c.Request.Context()
			if grantStore != nil {
				if err := grantStore.Clear(reqCtx); err != nil {
					return err
				}
			}
			if resetter, ok := store.(blob.Resetter); ok {
				if err := resetter.Reset(reqCtx); err != nil {
					return err
				}
			}
			return registry.Reset(reqCtx)
		}
		dev := api.Group("/dev")
		grants.NewHandler(localAuthority, resetAll).RegisterRoutes(dev)
	}

	return r, nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3blob.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return minioblob.New(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
	default:
		return localblob.New(cfg.LocalStoreDir), nil
	}
}

func buildRegistry(ctx context.Context, cfg config.Config) (cases.Registry, error) {
	switch cfg.RegistryType {
	case "postgres":
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		conn, err := db.Connect(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("database connect failed, falling back to memory registry: %v", err)
				return cases.NewMemoryRegistry(), nil
			}
			return nil, err
		}
		if err := db.RunMigrations(ctx, conn); err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("migrations failed, falling back to memory registry: %v", err)
				return cases.NewMemoryRegistry(), nil
			}
			return nil, err
		}
		return &cases.PGRegistry{DB: conn}, nil
	case "file":
		return cases.NewFileRegistry(cfg.MetadataDir)
	default:
		return cases.NewMemoryRegistry(), nil
	}
}

// buildAuthority picks the upload authority matching the blob store. The
// local store keeps its own grant table and serves uploads itself; s3 and
// minio delegate to real presigned URLs.
func buildAuthority(ctx context.Context, cfg config.Config, store blob.Store) (grants.Authority, *grants.LocalAuthority, grants.Store, error) {
	switch s := store.(type) {
	case *s3blob.Store:
		return grants.NewS3Authority(s.Client(), s.Bucket(), s.ObjectKey, cfg.PresignTTL), nil, nil, nil
	case *minioblob.Store:
		return grants.NewMinIOAuthority(s.Client(), s.Bucket(), cfg.PresignTTL), nil, nil, nil
	default:
		grantStore, err := buildGrantStore(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		authority := grants.NewLocalAuthority(grantStore, store, cfg.PresignTTL)
		return authority, authority, grantStore, nil
	}
}

func buildGrantStore(ctx context.Context, cfg config.Config) (grants.Store, error) {
	switch cfg.GrantStoreType {
	case "redis":
		return grants.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return grants.NewMemoryStore(), nil
	}
}

func isDevLike(env string) bool {
	switch env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

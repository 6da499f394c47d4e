package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	adminauth "coop-site/internal/auth"
	"coop-site/internal/menus"
	"coop-site/internal/services/health"
	sharedauth "coop-site/internal/shared/auth"
	"coop-site/internal/shared/config"
	"coop-site/internal/shared/server"
	"coop-site/internal/shared/server/middleware"
	"coop-site/internal/shared/storage/db"
	"coop-site/internal/shared/storage/object"
	azurestore "coop-site/internal/shared/storage/object/azure"
	gcsstore "coop-site/internal/shared/storage/object/gcs"
	localstore "coop-site/internal/shared/storage/object/local"
	s3store "coop-site/internal/shared/storage/object/s3"
	"coop-site/internal/shared/telemetry"
)

// App holds shared dependencies, built once per process.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Backend     object.Backend
	MenuRepo    menus.Repo
	MenuService *menus.Service
	Resolver    *menus.Resolver
	MenuHandler *menus.Handler
	Sessions    *sharedauth.Sessions
	AdminAuth   *adminauth.AdminService

	closers []func() error
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildContext(context.Background(), cfg)
}

// BuildContext is Build with a caller-supplied context for connection setup.
func BuildContext(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.StorageBackend) == "" {
		cfg.StorageBackend = config.BackendLocal
	}
	if strings.TrimSpace(cfg.PublicDir) == "" {
		cfg.PublicDir = "./public"
	}

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	backend, static, err := app.buildBackend(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Backend = backend

	repo, err := buildRepo(cfg, sqlDB)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.MenuRepo = repo

	app.MenuService = menus.NewService(backend, repo, menus.Options{
		UploadsEnabled: cfg.UploadsEnabled,
		VerifyPDF:      cfg.VerifyPDF,
		CleanupTimeout: cfg.CleanupTimeout,
	})
	app.Resolver = menus.NewResolver(repo)
	app.MenuHandler = menus.NewHandler(app.MenuService, app.Resolver)

	app.Sessions = sharedauth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	app.AdminAuth = adminauth.NewAdminService(
		app.Sessions,
		sharedauth.NewPassword(cfg.AdminPassword, cfg.AdminPasswordHash),
		cfg.Env == "production",
	)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		MenuHandler: app.MenuHandler,
		AdminAuth:   app.AdminAuth,
		AdminGate:   middleware.AdminGate(app.Sessions),
		Health:      health.NewService(sqlDB, backend.Name()),
		Static:      static,
		StorageName: backend.Name(),
	})

	ready := map[string]any{
		"env":             cfg.Env,
		"storage_backend": backend.Name(),
		"record_store":    recordStoreName(repo),
		"uploads_enabled": cfg.UploadsEnabled,
	}
	if fileRepo, ok := repo.(*menus.FileRepo); ok {
		ready["record_file"] = fileRepo.Path()
	}
	telemetry.Info("bootstrap.ready", ready)
	return app, nil
}

// Close waits for background cleanups and releases connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.MenuService != nil {
		a.MenuService.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.RecordStore == config.RecordStorePostgres {
			return nil, fmt.Errorf("DATABASE_URL is required for RECORD_STORE=postgres")
		}
		return nil, nil
	}

	defaults := db.DefaultServerOptions()
	if db.IsLambdaRuntime() {
		defaults = db.DefaultLambdaOptions()
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(defaults))
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			err = fmt.Errorf("run migrations: %w", err)
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) && cfg.RecordStore != config.RecordStorePostgres {
			telemetry.Warn("bootstrap.db.unavailable", map[string]any{
				"error":    err,
				"fallback": "memory",
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func (a *App) buildBackend(ctx context.Context) (object.Backend, []server.StaticDir, error) {
	cfg := a.Config
	menuDir := filepath.Join(cfg.PublicDir, "menu")
	static := []server.StaticDir{{URLPrefix: "/menu", Dir: menuDir}}

	switch cfg.StorageBackend {
	case config.BackendLocal:
		return localstore.NewFixed(menuDir, "/menu"), static, nil
	case config.BackendLocalUnique:
		store := localstore.NewUnique(filepath.Join(cfg.PublicDir, "uploads"), "/uploads")
		static = append(static, server.StaticDir{URLPrefix: "/uploads", Dir: store.Dir()})
		return store, static, nil
	case config.BackendEphemeral:
		dir := strings.TrimSpace(cfg.ScratchDir)
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "coop-menu")
		}
		store := localstore.NewEphemeral(dir, "/scratch")
		static = append(static, server.StaticDir{URLPrefix: "/scratch", Dir: store.Dir()})
		return store, static, nil
	case config.BackendS3:
		store, err := s3store.New(ctx, s3store.Options{
			Region:         cfg.AWSRegion,
			Bucket:         cfg.S3Bucket,
			Prefix:         cfg.ObjectPrefix,
			Endpoint:       cfg.S3Endpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			PublicBaseURL:  cfg.S3PublicBaseURL,
			UsePathStyle:   cfg.S3UsePathStyle,
			KMSKeyID:       cfg.S3KMSKeyID,
			DeleteReplaced: cfg.DeleteReplaced,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, static, nil
	case config.BackendGCS:
		store, err := gcsstore.New(ctx, gcsstore.Options{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.ObjectPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
			PublicBaseURL:   cfg.GCSPublicBaseURL,
			DeleteReplaced:  cfg.DeleteReplaced,
		})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, static, nil
	case config.BackendAzureBlob:
		store, err := azurestore.New(azurestore.Options{
			AccountName:    cfg.AzureAccountName,
			AccountKey:     cfg.AzureAccountKey,
			Container:      cfg.AzureContainer,
			ServiceURL:     cfg.AzureServiceURL,
			Prefix:         cfg.ObjectPrefix,
			PublicBaseURL:  cfg.AzurePublicBaseURL,
			DeleteReplaced: cfg.DeleteReplaced,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, static, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func buildRepo(cfg config.Config, sqlDB *sql.DB) (menus.Repo, error) {
	kind := cfg.RecordStore
	if kind == "" {
		kind = config.RecordStoreMemory
		if sqlDB != nil {
			kind = config.RecordStorePostgres
		}
	}
	switch kind {
	case config.RecordStorePostgres:
		if sqlDB == nil {
			return nil, errors.New("postgres record store requires a database connection")
		}
		return &menus.PGRepo{DB: sqlDB}, nil
	case config.RecordStoreFile:
		return menus.NewFileRepo(cfg.RecordFilePath)
	case config.RecordStoreMemory:
		return menus.NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("unknown record store %q", kind)
	}
}

func recordStoreName(repo menus.Repo) string {
	switch repo.(type) {
	case *menus.PGRepo:
		return config.RecordStorePostgres
	case *menus.FileRepo:
		return config.RecordStoreFile
	default:
		return config.RecordStoreMemory
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

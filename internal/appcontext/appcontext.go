// Package appcontext builds the service graph once at startup and owns the
// lifetime of every external connection.
package appcontext

import (
	"context"
	"fmt"
	"time"

	"handcrafted-haven/config"
	"handcrafted-haven/internal/api"
	"handcrafted-haven/internal/auth"
	"handcrafted-haven/internal/broker"
	"handcrafted-haven/internal/realtime"
	"handcrafted-haven/internal/redisclient"
	"handcrafted-haven/internal/service"
	"handcrafted-haven/internal/storage"
	"handcrafted-haven/internal/store"
	"handcrafted-haven/internal/util"
	"handcrafted-haven/internal/worker"

	"go.uber.org/zap"
)

type ApplicationContext struct {
	Cfg            *config.Config
	Store          *store.Store
	Redis          *redisclient.Client
	Producer       *broker.Producer
	EventPublisher *broker.EventPublisher
	Media          *storage.Service
	Hub            *realtime.Hub

	AuthService     *auth.Service
	CatalogService  *service.CatalogService
	CartService     *service.CartService
	OrderService    *service.OrderService
	ReviewService   *service.ReviewService
	FavoriteService *service.FavoriteService
	MessageService  *service.MessageService
	ProfileService  *service.ProfileService
	Dispatcher      *service.NotificationDispatcher
	RealtimeWorker  *worker.RealtimeWorker

	logger *zap.Logger
}

// New connects to every backing service and wires the services on top.
// Anything opened before a failure is closed again.
func New(ctx context.Context, cfg *config.Config) (*ApplicationContext, error) {
	app := &ApplicationContext{Cfg: cfg, logger: util.GetLogger()}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", app.setUpStore},
		{"redis", app.setUpRedis},
		{"kafka", app.setUpKafka},
		{"storage", app.setUpStorage},
		{"services", app.setUpServices},
	}
	for _, step := range steps {
		app.logger.Info("Setting up", zap.String("component", step.name))
		if err := step.fn(ctx); err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = app.Close(closeCtx)
			cancel()
			return nil, fmt.Errorf("failed to set up %s: %w", step.name, err)
		}
	}
	return app, nil
}

func (app *ApplicationContext) setUpStore(context.Context) error {
	if app.Cfg.Database.MigrateOnBoot {
		if err := store.RunMigrations(app.Cfg.Database.URL); err != nil {
			return err
		}
	}
	db, err := store.NewStore(app.Cfg.Database.URL)
	if err != nil {
		return err
	}
	app.Store = db
	return nil
}

func (app *ApplicationContext) setUpRedis(context.Context) error {
	client, err := redisclient.NewClient(app.Cfg.Redis.Addr, app.Cfg.Redis.Password, app.Cfg.Redis.DB)
	if err != nil {
		return err
	}
	app.Redis = client
	app.Hub = realtime.NewHub(client)
	return nil
}

func (app *ApplicationContext) setUpKafka(context.Context) error {
	app.Producer = broker.NewProducer(app.Cfg.Kafka.Brokers, app.Cfg.Kafka.TopicEvents)
	app.EventPublisher = broker.NewEventPublisher(app.Producer)
	return nil
}

// setUpStorage picks the upload backend: a local directory or MongoDB GridFS
func (app *ApplicationContext) setUpStorage(ctx context.Context) error {
	sc := app.Cfg.Storage

	var backend storage.Backend
	switch sc.Backend {
	case "", "local":
		local, err := storage.NewLocalBackend(sc.LocalDir)
		if err != nil {
			return err
		}
		backend = local
	case "gridfs":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		grid, err := storage.NewGridFSBackend(connectCtx, sc.MongoURI, sc.MongoDatabase)
		if err != nil {
			return err
		}
		backend = grid
	default:
		return fmt.Errorf("unknown storage backend %q", sc.Backend)
	}

	app.Media = storage.NewService(backend, sc.PublicBaseURL, sc.MaxUploadMB)
	return nil
}

func (app *ApplicationContext) setUpServices(context.Context) error {
	biz := app.Cfg.Business

	app.AuthService = auth.NewService(
		app.Store,
		auth.NewTokenManager(app.Cfg.Auth.JWTSecret, app.Cfg.Auth.TokenTTL),
		app.Redis,
		auth.NewLogObserver(app.logger),
		auth.MetricsObserver{},
	)
	app.CatalogService = service.NewCatalogService(app.Store, app.Media, biz.DefaultPageSize)
	app.CartService = service.NewCartService(app.Store)
	app.OrderService = service.NewOrderService(app.Store, app.Redis, app.EventPublisher,
		time.Duration(biz.CheckoutLockSeconds)*time.Second)
	app.ReviewService = service.NewReviewService(app.Store, app.EventPublisher, biz.MaxReviewCommentChars)
	app.FavoriteService = service.NewFavoriteService(app.Store)
	app.MessageService = service.NewMessageService(app.Store, app.Media, app.EventPublisher)
	app.ProfileService = service.NewProfileService(app.Store, app.Media)

	app.Dispatcher = service.NewNotificationDispatcher(app.Store, app.Hub)
	consumer := broker.NewConsumer(app.Cfg.Kafka.Brokers, app.Cfg.Kafka.TopicEvents, app.Cfg.Kafka.ConsumerGroup)
	app.RealtimeWorker = worker.NewRealtimeWorker(consumer, app.Dispatcher)
	return nil
}

// Handler builds the HTTP layer over the wired services
func (app *ApplicationContext) Handler() *api.Handler {
	return api.NewHandler(api.Services{
		Auth:      app.AuthService,
		Catalog:   app.CatalogService,
		Cart:      app.CartService,
		Orders:    app.OrderService,
		Reviews:   app.ReviewService,
		Favorites: app.FavoriteService,
		Messages:  app.MessageService,
		Profiles:  app.ProfileService,
		Hub:       app.Hub,
		Media:     app.Media,
	}, app.Cfg.Server.CORSOrigin, map[string]api.Pinger{
		"postgres": app.Store,
		"redis":    app.Redis,
	})
}

// Close releases connections in reverse order of creation
func (app *ApplicationContext) Close(ctx context.Context) error {
	var firstErr error
	record := func(name string, err error) {
		if err == nil {
			return
		}
		app.logger.Error("Failed to close", zap.String("component", name), zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if app.RealtimeWorker != nil {
		record("realtime worker", app.RealtimeWorker.Stop())
	}
	if app.Media != nil {
		record("storage", app.Media.Close(ctx))
	}
	if app.Producer != nil {
		record("kafka producer", app.Producer.Close())
	}
	if app.Redis != nil {
		record("redis", app.Redis.Close())
	}
	if app.Store != nil {
		record("database", app.Store.Close())
	}
	return firstErr
}

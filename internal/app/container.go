package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/acme/inbound-call-desk/internal/config"
	"github.com/acme/inbound-call-desk/internal/infra/db"
	"github.com/acme/inbound-call-desk/internal/infra/redis"
	"github.com/acme/inbound-call-desk/internal/lifecycle"
	"github.com/acme/inbound-call-desk/internal/notify"
	"github.com/acme/inbound-call-desk/internal/presence"
	"github.com/acme/inbound-call-desk/internal/queue"
	"github.com/acme/inbound-call-desk/internal/repository"
	pgrepo "github.com/acme/inbound-call-desk/internal/repository/postgres"
	redisrepo "github.com/acme/inbound-call-desk/internal/repository/redis"
	scyllarepo "github.com/acme/inbound-call-desk/internal/repository/scylla"
	"github.com/acme/inbound-call-desk/internal/session"
	"github.com/acme/inbound-call-desk/internal/telephony"
	telephonyMock "github.com/acme/inbound-call-desk/internal/telephony/mock"
	telephonyRest "github.com/acme/inbound-call-desk/internal/telephony/rest"
	"github.com/acme/inbound-call-desk/internal/voicemail"
	"github.com/acme/inbound-call-desk/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	// Kafka is nil when no brokers are configured; notification dispatch
	// is then skipped silently.
	Kafka *queue.Kafka

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *repositories
		services     *services
		dispatchers  *dispatchers
		providers    *providers
		sessions     *session.Manager
		resolver     session.Resolver
	}
}

type repositories struct {
	Workers       repository.WorkerRepository
	Events        repository.LifecycleEventStore
	ActivityCache repository.ActivityCache
}

type services struct {
	Presence    *presence.Service
	Broadcaster *presence.Broadcaster
	Lifecycle   *lifecycle.Handler
	Voicemail   *voicemail.Coordinator
}

type dispatchers struct {
	// VoicemailNotifier is nil when notifications are unconfigured.
	VoicemailNotifier *notify.Publisher
}

type providers struct {
	Telephony telephony.Provider
	Notify    notify.Provider
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	return &Container{
		Config:   cfg,
		Logger:   lg,
		Postgres: pg,
		Scylla:   scylla,
		Redis:    redisClient,
		Kafka:    kafka,
	}, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &repositories{
			Workers:       pgrepo.NewWorkerRepository(c.Postgres.DB()),
			Events:        scyllarepo.NewEventStore(c.Scylla.Session()),
			ActivityCache: redisrepo.NewActivityCache(c.Redis.Inner()),
		}

		disp := &dispatchers{}
		if c.Kafka != nil && c.Config.Notify.Enabled && c.Config.Kafka.NotifyTopic != "" {
			disp.VoicemailNotifier = notify.NewPublisher(c.Kafka, c.Config.Kafka.NotifyTopic)
		}

		prov := &providers{
			Notify: notify.NewLogProvider(c.Logger),
		}
		if c.Config.Voicemail.UseMockTelephony {
			prov.Telephony = telephonyMock.NewProvider()
		} else {
			prov.Telephony = telephonyRest.NewProvider(c.Config.Voicemail)
		}

		broadcaster := presence.NewBroadcaster()
		presenceSvc := presence.NewService(repos.Workers, repos.ActivityCache, broadcaster, c.Logger)

		var dispatcher notify.Dispatcher
		if disp.VoicemailNotifier != nil {
			dispatcher = disp.VoicemailNotifier
		}
		voicemailSvc := voicemail.NewCoordinator(prov.Telephony, dispatcher, c.Logger)

		svcs := &services{
			Presence:    presenceSvc,
			Broadcaster: broadcaster,
			Voicemail:   voicemailSvc,
			Lifecycle: lifecycle.NewHandler(
				voicemailSvc,
				repos.Events,
				c.Config.TaskRouter.VoicemailQueueName,
				c.Config.TaskRouter.WorkspaceSID,
				c.Logger,
			),
		}

		sessions := session.NewManager(session.ManagerConfig{
			Presence:    presenceSvc,
			Invalidator: session.NewRedisInvalidator(c.Redis.Inner()),
			Guard:       session.NewRedisGuard(c.Redis.Inner()),
			CutoffHour:  c.Config.Session.CutoffHour,
			Interval:    c.Config.Session.PollInterval,
			Logger:      c.Logger,
		})

		c.components.repositories = repos
		c.components.dispatchers = disp
		c.components.providers = prov
		c.components.services = svcs
		c.components.sessions = sessions
		c.components.resolver = session.NewGatewayResolver(repos.Workers)
	})
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *repositories {
	c.initComponents()
	return c.components.repositories
}

// Services exposes initialized services.
func (c *Container) Services() *services {
	c.initComponents()
	return c.components.services
}

// Dispatchers exposes Kafka dispatchers.
func (c *Container) Dispatchers() *dispatchers {
	c.initComponents()
	return c.components.dispatchers
}

// Providers exposes external providers.
func (c *Container) Providers() *providers {
	c.initComponents()
	return c.components.providers
}

// Sessions exposes the expiry scheduler manager.
func (c *Container) Sessions() *session.Manager {
	c.initComponents()
	return c.components.sessions
}

// SessionResolver exposes the session identity resolver.
func (c *Container) SessionResolver() session.Resolver {
	c.initComponents()
	return c.components.resolver
}

// EnsureTopics ensures the notification topic exists.
func (c *Container) EnsureTopics(ctx context.Context) error {
	if c.Kafka == nil || c.Config.Kafka.NotifyTopic == "" {
		return nil
	}
	return c.Kafka.EnsureTopics(ctx, []string{c.Config.Kafka.NotifyTopic}, 12, 1)
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	if c.components.sessions != nil {
		c.components.sessions.Close()
	}
	if d := c.components.dispatchers; d != nil && d.VoicemailNotifier != nil {
		if err := d.VoicemailNotifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier close: %w", err))
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

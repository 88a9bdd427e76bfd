package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devcamper/catalog/internal/aggregate"
	"github.com/devcamper/catalog/internal/api/rest"
	"github.com/devcamper/catalog/internal/catalog"
	"github.com/devcamper/catalog/internal/core/pubsub"
	pubsubconfig "github.com/devcamper/catalog/internal/core/pubsub/config"
	"github.com/devcamper/catalog/internal/core/pubsub/memory"
	"github.com/devcamper/catalog/internal/core/pubsub/nats"
	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/logging"
	"github.com/devcamper/catalog/internal/query"
	"github.com/devcamper/catalog/internal/server"
	"github.com/devcamper/catalog/internal/storage"
)

var newDocumentStore = storage.NewDocumentStore

var newProvider = func(ctx context.Context, cfg pubsubconfig.Config) (pubsub.Provider, error) {
	switch cfg.Provider {
	case pubsubconfig.ProviderNATS:
		p := nats.NewProvider(cfg.NatsURL)
		if err := p.Connect(ctx); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return memory.New(), nil
	}
}

// Init builds every component. On error, components created so far are
// left for Shutdown to release.
func (m *Manager) Init(ctx context.Context) error {
	if !m.opts.SkipLogging {
		if err := logging.Initialize(m.cfg.Logging); err != nil {
			return err
		}
	}
	m.logger = slog.Default().With("component", "services")

	store, err := newDocumentStore(ctx, m.cfg.Storage, catalog.Indexes())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	m.store = store
	m.logger.Info("Storage initialized", "backend", m.cfg.Storage.Backend)

	if err := m.initAggregates(ctx); err != nil {
		return err
	}

	if m.opts.RunAPI {
		if err := m.initAPIServer(); err != nil {
			return err
		}
	}
	return nil
}

// initAggregates connects the task queue and builds the synchronizer and,
// when requested, the worker draining it.
func (m *Manager) initAggregates(ctx context.Context) error {
	cfg := m.cfg.Aggregate
	policy, err := aggregate.ParseEmptyPolicy(cfg.EmptyFallback)
	if err != nil {
		return err
	}

	// An in-memory queue nobody drains would drop every task.
	queued := m.cfg.PubSub.Provider == pubsubconfig.ProviderNATS || m.opts.RunWorker
	storageType := pubsub.ParseStorageType(m.cfg.PubSub.StorageType)

	if queued {
		provider, err := newProvider(ctx, m.cfg.PubSub)
		if err != nil {
			return fmt.Errorf("failed to connect pubsub provider: %w", err)
		}
		m.provider = provider

		if m.opts.RunAPI {
			pub, err := provider.NewPublisher(pubsub.PublisherOptions{
				StreamName:    m.cfg.PubSub.StreamName,
				SubjectPrefix: aggregate.TaskSubjectPrefix,
				Storage:       storageType,
			})
			if err != nil {
				return fmt.Errorf("failed to create aggregate publisher: %w", err)
			}
			m.publisher = pub
		}
	}

	syncer, err := aggregate.NewSynchronizer(m.store, m.publisher, cfg, slog.Default(), catalog.Aggregates(policy)...)
	if err != nil {
		return fmt.Errorf("failed to initialize aggregates: %w", err)
	}
	m.syncer = syncer

	if m.opts.RunWorker {
		opts := aggregate.ConsumerOptions(cfg, m.cfg.PubSub.StreamName, aggregate.TaskSubjectPrefix, storageType)
		consumer, err := m.provider.NewConsumer(opts)
		if err != nil {
			return fmt.Errorf("failed to create aggregate consumer: %w", err)
		}
		m.worker = aggregate.NewWorker(consumer, syncer, cfg, slog.Default())
	}

	m.logger.Info("Aggregates initialized",
		"provider", m.cfg.PubSub.Provider,
		"queued", m.publisher != nil,
		"worker", m.worker != nil,
		"aggregates", syncer.Names(),
	)
	return nil
}

func (m *Manager) initAPIServer() error {
	tokens, err := identity.NewTokenService(m.cfg.Identity)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	translator := query.NewTranslator(m.cfg.Query)
	logger := slog.Default()

	users := catalog.NewUserService(m.store, translator, catalog.Credentials{
		Tokens:            tokens,
		Hasher:            identity.NewHasher(m.cfg.Identity),
		MinPasswordLength: m.cfg.Identity.MinPasswordLength,
	}, logger)

	srvCfg := m.cfg.Server
	if m.opts.ListenHost != "" {
		srvCfg.Host = m.opts.ListenHost
	}
	m.server = server.New(srvCfg, logger)

	handler, err := rest.NewHandler(rest.Dependencies{
		Bootcamps:   catalog.NewBootcampService(m.store, translator, logger),
		Courses:     catalog.NewChildService(catalog.CourseKind, m.store, translator, logger),
		Reviews:     catalog.NewChildService(catalog.ReviewKind, m.store, translator, logger),
		Users:       users,
		Tokens:      tokens,
		Aggregates:  m.syncer,
		AuthLimiter: server.AuthRateLimiter(m.server),
	})
	if err != nil {
		return err
	}
	handler.RegisterRoutes(m.server.HTTPMux())
	return nil
}

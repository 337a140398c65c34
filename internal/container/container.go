// Package container wires the engine together with samber/do. Each Package
// function registers one concern; mains compose the subset they need.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/linkmint/linkmint/internal/api"
	"github.com/linkmint/linkmint/internal/config"
	"github.com/linkmint/linkmint/internal/events"
	"github.com/linkmint/linkmint/internal/health"
	"github.com/linkmint/linkmint/internal/lock"
	"github.com/linkmint/linkmint/internal/messaging"
	"github.com/linkmint/linkmint/internal/middleware"
	"github.com/linkmint/linkmint/internal/ratelimit"
	"github.com/linkmint/linkmint/internal/shortcode"
	"github.com/linkmint/linkmint/internal/shortener"
	"github.com/linkmint/linkmint/internal/storage"
	"github.com/linkmint/linkmint/internal/tenant"
	"github.com/linkmint/linkmint/internal/validator"
)

// Options are the process-level flags; everything else comes from the
// environment via config.Load.
type Options struct {
	Port      int    `default:"8888"    help:"Port to listen on"            short:"p"`
	LogFormat string `default:"console" enum:"console,json"                 help:"Log output format"`
}

// LoggerPackage registers the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// ConfigPackage registers the environment-derived engine configuration.
func ConfigPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*config.Config, error) {
		return config.Load()
	})
}

// RedisPackage registers the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		return client, nil
	})
}

// PostgresPackage registers the pgx connection pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)

		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}

		poolCfg.MaxConns = cfg.Database.MaxConns

		pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return pool, nil
	})
}

// RepositoryPackage registers the durable stores: the shortened-URL
// repository (cache-wrapped when enabled) and the tenant directory.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (storage.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		pool := do.MustInvoke[*pgxpool.Pool](i)

		var repo storage.Repository = storage.NewPostgresRepository(pool, cfg.Engine.MaxCodeLength)

		if cfg.Redis.CacheEnabled {
			client := do.MustInvoke[*redis.Client](i)
			repo = storage.NewRedisCacheRepository(repo, client, time.Hour)
		}

		return repo, nil
	})

	do.Provide(injector, func(i *do.Injector) (tenant.Directory, error) {
		pool := do.MustInvoke[*pgxpool.Pool](i)

		return tenant.NewPostgresDirectory(pool), nil
	})
}

// ShortenerPackage registers the code generator, the creation lock and the
// orchestrator on top of them.
func ShortenerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortcode.Generator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[*redis.Client](i)

		return shortcode.New(cfg.Engine.Strategy, cfg.Engine.CodeConfig(), client)
	})

	do.Provide(injector, func(i *do.Injector) (lock.Locker, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return lock.NewRedisLocker(client, cfg.Engine.LockTTL, cfg.Engine.LockRaceWindow, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortener.Shortener, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		enqueue := messaging.NoopPublish[events.ShortenRequestedJob]()
		if cfg.Engine.AsyncProcessing {
			group := do.MustInvoke[*messaging.PublisherGroup](i)
			enqueue = messaging.NewPublishFunc[events.ShortenRequestedJob](group.Publisher(), events.TopicShortenRequested)
		}

		s := shortener.New(
			do.MustInvoke[shortcode.Generator](i),
			do.MustInvoke[lock.Locker](i),
			do.MustInvoke[storage.Repository](i),
			enqueue,
			logger,
		)
		if cfg.Engine.SchemeOverride != "" {
			s = s.WithSchemeOverride(cfg.Engine.SchemeOverride)
		}

		return s, nil
	})
}

// RateLimitPackage registers the policy limiter over the Redis store, so
// limits hold across server instances.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		client := do.MustInvoke[*redis.Client](i)

		return ratelimit.NewPolicyLimiter(ratelimit.NewRedisStore(client), ratelimit.DefaultPolicy()), nil
	})
}

// PublisherGroupPackage registers the redis-stream publisher used for jobs
// and click events.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage registers the worker-side consumers: deferred
// shorten jobs and the click log.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "linkmint-worker",
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)

		s := do.MustInvoke[*shortener.Shortener](i)
		group.Add(messaging.NewConsumer(
			subscriber,
			events.TopicShortenRequested,
			func(ctx context.Context, job *events.ShortenRequestedJob) error {
				return s.PersistShortened(ctx, job)
			},
			logger,
		))

		clicks := events.NewZapClickStore(logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			events.TopicLinkClicked,
			func(ctx context.Context, event *events.LinkClickedEvent) error {
				return clicks.SaveClick(ctx, event)
			},
			logger,
		))

		return group, nil
	})
}

// HTTPPackage registers the chi router and the huma API with all routes and
// middleware attached.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		humaAPI := humachi.New(router, huma.DefaultConfig("linkmint", "1.0.0"))

		limiter := do.MustInvoke[*ratelimit.PolicyLimiter](i)
		humaAPI.UseMiddleware(middleware.RequestMeta(humaAPI))
		humaAPI.UseMiddleware(middleware.PolicyRateLimiter(
			humaAPI,
			limiter,
			ratelimit.NewOperationScopeResolver(),
			logger,
		))

		publishClick := messaging.NoopPublish[events.LinkClickedEvent]()
		if group, err := do.Invoke[*messaging.PublisherGroup](i); err == nil {
			publishClick = messaging.NewPublishFunc[events.LinkClickedEvent](group.Publisher(), events.TopicLinkClicked)
		}

		handler := api.NewHandler(
			do.MustInvoke[*shortener.Shortener](i),
			do.MustInvoke[tenant.Directory](i),
			validator.New(cfg.Engine.AllowedRedirectHosts),
			publishClick,
			cfg.Engine,
			logger,
		)
		api.RegisterRoutes(humaAPI, handler)

		healthHandler := health.NewHandler(
			health.NewRedisChecker(do.MustInvoke[*redis.Client](i)),
			health.NewPostgresChecker(do.MustInvoke[*pgxpool.Pool](i)),
		)
		health.RegisterRoutes(humaAPI, healthHandler)

		return humaAPI, nil
	})
}

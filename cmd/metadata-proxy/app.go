package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/connector"
	"github.com/vitebski/graph-metadata-proxy/internal/metrics"
	"github.com/vitebski/graph-metadata-proxy/internal/popularity"
	"github.com/vitebski/graph-metadata-proxy/internal/proxy"
	"github.com/vitebski/graph-metadata-proxy/internal/utils"
)

type config struct {
	host        string
	user        string
	password    string
	database    string
	port        string
	redisAddr   string
	envFile     string
	logLevel    string
	metricsFile string

	logger *logrus.Logger
}

// applyEnvironment fills connection settings the flags left empty
func (c *config) applyEnvironment() {
	if c.host == "" {
		c.host = os.Getenv("NEO4J_HOST")
		if c.host == "" {
			c.host = "localhost"
		}
	}
	if c.user == "" {
		c.user = os.Getenv("NEO4J_USER")
		if c.user == "" {
			c.user = "neo4j"
		}
	}
	if c.password == "" {
		c.password = os.Getenv("NEO4J_PASSWORD")
	}
	if c.database == "" {
		c.database = os.Getenv("NEO4J_DATABASE")
	}
	if c.port == "" {
		c.port = os.Getenv("NEO4J_PORT")
		if c.port == "" {
			c.port = "7687"
		}
	}
	if c.redisAddr == "" {
		c.redisAddr = os.Getenv("REDIS_ADDR")
	}
}

// app holds the wired components for one command run
type app struct {
	cfg      *config
	conn     *connector.GraphConnector
	proxy    *proxy.MetadataProxy
	registry *prometheus.Registry
	redis    *popularity.RedisStore
}

// openApp connects to the graph store and builds the proxy
func openApp(ctx context.Context, cfg *config) (*app, error) {
	if !utils.ValidateConnectionParams(cfg.host, cfg.user, cfg.password, cfg.port, cfg.logger) {
		return nil, fmt.Errorf("invalid connection parameters")
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	conn := connector.NewGraphConnector(cfg.host, cfg.user, cfg.password, cfg.database, cfg.port, cfg.logger)
	conn.Metrics = m
	if err := conn.Connect(ctx); err != nil {
		cfg.logger.Errorf("Failed to connect to graph store: %v", err)
		return nil, err
	}

	a := &app{cfg: cfg, conn: conn, registry: registry}

	var store popularity.Store = popularity.NewMemoryStore()
	if cfg.redisAddr != "" {
		redisStore, err := popularity.NewRedisStoreWithAddr(ctx, cfg.redisAddr, os.Getenv("REDIS_PASSWORD"), utils.GetEnvInt("REDIS_DB", 0))
		if err != nil {
			cfg.logger.Warningf("Redis at %s unavailable, using the in-process popularity cache: %v", cfg.redisAddr, err)
		} else {
			a.redis = redisStore
			store = redisStore
		}
	}

	cache := popularity.NewCache(
		store,
		utils.GetEnvInt("POPULAR_TABLES_CACHE_SIZE", popularity.DefaultSize),
		time.Duration(utils.GetEnvInt("POPULAR_TABLES_CACHE_TTL", int(popularity.DefaultTTL/time.Second)))*time.Second,
		cfg.logger,
	)
	cache.Metrics = m

	a.proxy = proxy.New(conn, cache,
		proxy.WithLogger(cfg.logger),
		proxy.WithMinReaders(utils.GetEnvInt("POPULAR_TABLES_MIN_READERS", proxy.DefaultMinReaders)),
	)
	return a, nil
}

// Close releases the connections and writes the metrics file if requested
func (a *app) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.cfg.logger.Warningf("Error closing Redis connection: %v", err)
		}
	}
	a.conn.Disconnect(ctx)

	if a.cfg.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.metricsFile, a.registry); err != nil {
			a.cfg.logger.Warningf("Error writing metrics to %s: %v", a.cfg.metricsFile, err)
		}
	}
}

// withApp opens the app, runs fn and closes the app
func withApp(ctx context.Context, cfg *config, fn func(a *app) error) error {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(a)
}

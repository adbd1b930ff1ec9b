// Command streamgateway is a demo HTTP server built on top of
// creditstream: it accepts a request body on POST /stream, encrypts it
// chunk-by-chunk through a credit-flow-controlled worker, and either
// echoes the ciphertext back to the caller or uploads it to S3,
// generalizing the teacher's S3 encryption gateway server into a demo of
// this module's streaming primitive.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/creditstream/ambient/auditlog"
	"github.com/kenneth/creditstream/ambient/sessionregistry"
	"github.com/kenneth/creditstream/ambient/tracefilter"
	"github.com/kenneth/creditstream/config"
	"github.com/kenneth/creditstream/metrics"
	"github.com/kenneth/creditstream/sink"
	"github.com/kenneth/creditstream/tracing"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		configPath  = flag.String("config", "", "path to a YAML config file; built-in defaults are used if empty")
		instanceID  = flag.String("instance-id", hostnameOrDefault(), "identifier recorded in the session registry")
		redisAddr   = flag.String("redis-addr", "", "Redis address for the session registry; disabled if empty")
		sinkURI     = flag.String("sink", "", "s3://bucket/key-prefix to upload encrypted streams to; echoes to the response if empty")
		s3Region    = flag.String("s3-region", "us-east-1", "region for the -sink S3 client")
		s3Endpoint  = flag.String("s3-endpoint", "", "endpoint override for S3-compatible providers (MinIO, Garage, ...)")
		s3PathStyle = flag.Bool("s3-path-style", false, "use path-style S3 addressing")
		traceExp    = flag.String("trace-exporter", "stdout", "otlp-grpc or stdout")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	var cfgWatcher *config.Watcher
	if *configPath != "" {
		var err error
		cfgWatcher, err = config.NewWatcher(*configPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to load config")
		}
		defer cfgWatcher.Close()
	} else {
		cfgWatcher = staticWatcher(config.Default())
	}

	shutdownTracing, err := tracing.NewProvider(context.Background(), "streamgateway", tracing.Exporter(*traceExp))
	if err != nil {
		logger.WithError(err).Fatal("failed to set up tracing")
	}
	defer shutdownTracing(context.Background())

	m := metrics.NewMetrics(cfgWatcher.Current().Metrics)

	auditLogger, err := auditlog.NewLoggerFromConfig(cfgWatcher.Current().Audit)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up audit log")
	}
	defer auditLogger.Close()

	var registry *sessionregistry.Registry
	if *redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		registry = sessionregistry.New(client, 10*time.Minute)
		if err := registry.Ping(context.Background()); err != nil {
			logger.WithError(err).Warn("session registry: redis unreachable, continuing without it")
			registry = nil
		}
	}

	var s3Sink *sink.S3Sink
	var s3Target sink.Target
	if *sinkURI != "" {
		s3Target, err = sink.ParseTarget(*sinkURI)
		if err != nil {
			logger.WithError(err).Fatal("invalid -sink value")
		}
		s3Sink, err = sink.NewS3Sink(context.Background(), sink.Options{
			Region:       *s3Region,
			Endpoint:     *s3Endpoint,
			AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UsePathStyle: *s3PathStyle,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to set up S3 sink")
		}
	}

	masterSecret := make([]byte, 32)
	if _, err := rand.Read(masterSecret); err != nil {
		logger.WithError(err).Fatal("failed to seed master secret")
	}

	h := &Handler{
		logger:       logger,
		metrics:      m,
		audit:        auditLogger,
		registry:     registry,
		s3Sink:       s3Sink,
		s3Target:     s3Target,
		cfgWatcher:   cfgWatcher,
		traceFilter:  tracefilter.FromConfig(cfgWatcher.Current().Debug),
		masterSecret: masterSecret,
		instanceID:   *instanceID,
	}

	router := mux.NewRouter()
	h.registerRoutes(router)

	var handler http.Handler = router
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	server := &http.Server{Addr: *addr, Handler: handler}

	go func() {
		logger.WithField("addr", *addr).Info("streamgateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}

func hostnameOrDefault() string {
	h, err := os.Hostname()
	if err != nil {
		return "streamgateway"
	}
	return h
}

// staticWatcher wraps a fixed StreamConfig in the same interface main
// uses for a file-backed config.Watcher, so running without -config does
// not need a second code path.
func staticWatcher(cfg *config.StreamConfig) *config.Watcher {
	return config.NewStaticWatcher(cfg)
}

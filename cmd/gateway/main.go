package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storage-gateway/auth"
	"storage-gateway/cache"
	cacheinfra "storage-gateway/cache/infra"
	"storage-gateway/gateway"
	"storage-gateway/middleware/ratelimit"
	rlapp "storage-gateway/middleware/ratelimit/application"
	rldomain "storage-gateway/middleware/ratelimit/domain"
	rlinfra "storage-gateway/middleware/ratelimit/infra"
	"storage-gateway/migrate"
	"storage-gateway/objects"
	objapp "storage-gateway/objects/application"
	objinfra "storage-gateway/objects/infra"
	"storage-gateway/session"
	sessapp "storage-gateway/session/application"
	sessinfra "storage-gateway/session/infra"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := readConfig()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Redis: contador de rate limit + cache de borda (+ stats, se ligado)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})
	defer func() { _ = rdb.Close() }()

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	_, err = rdb.Ping(pingCtx).Result()
	pingCancel()
	if err != nil {
		// não é fatal: o limiter degrada para fail-open e o cache vira miss
		logger.Warn("redis unreachable at startup", zap.Error(err))
	}

	// Object store (S3-compatível)
	s3c, err := objinfra.NewClient(ctx, cfg.s3Region, cfg.s3Endpoint, cfg.s3AccessKey, cfg.s3SecretKey)
	if err != nil {
		logger.Fatal("s3 client", zap.Error(err))
	}
	objStore := objinfra.NewS3Store(s3c, cfg.s3Bucket)

	// Sessões (PostgreSQL)
	if err := migrate.Up(ctx, cfg.databaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	pool, err := pgxpool.New(ctx, cfg.databaseDSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	sessRepo := sessinfra.NewPostgresRepository(pool)
	sessSvc := sessapp.Service{Repo: sessRepo, TTL: cfg.sessionTTL}
	sweeper := &sessapp.Sweeper{
		Repo:   sessRepo,
		TTL:    cfg.sessionTTL,
		Every:  cfg.sessionSweepEvery,
		Logger: logger,
	}
	sweeper.Start(ctx)

	// Rate limit: janela fixa no Redis + fallback local para fail-open
	fallback := rlinfra.NewLocalStore(float64(cfg.rateLimit)/cfg.rateWindow.Seconds(), cfg.rateLimit)
	fallback.StartJanitor(ctx)
	rlSvc := rlapp.Service{
		Store:       rlinfra.NewRedisCounterStore(rdb),
		Fallback:    fallback,
		Limit:       cfg.rateLimit,
		Window:      cfg.rateWindow,
		Burst:       cfg.rateBurst,
		BurstWindow: cfg.rateBurstWindow,
		Logger:      logger,
	}

	var stats rldomain.StatsStore
	if cfg.rateStatsEnabled {
		switch cfg.rateStatsBackend {
		case "memory":
			// backend de desenvolvimento: contadores no processo, sem Redis
			stats = rlinfra.NewMemoryStatsStore(rlinfra.WithTrackKeys(cfg.rateStatsTrackKeys))
		default:
			stats = rlinfra.NewRedisStatsStore(rdb,
				rlinfra.WithStatsTTL(cfg.rateStatsTTL),
				rlinfra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
			)
		}
	}

	verifier := auth.NewVerifier(cfg.jwtSecret)

	objHandler := &objects.Handler{
		Service: objapp.Service{Store: objStore},
		Auth:    verifier,
		Logger:  logger,
	}
	cacheProxy := &cache.Proxy{
		Store:        cacheinfra.NewRedisCache(rdb),
		Upstream:     cfg.cacheUpstreamURL,
		Client:       &http.Client{Timeout: cfg.cacheFetchTimeout},
		FetchTimeout: cfg.cacheFetchTimeout,
		Logger:       logger,
	}
	sessHandler := &session.Handler{Service: sessSvc, Logger: logger}

	// Passthrough: tudo que não é do gateway segue para o backend da aplicação
	target, err := url.Parse(cfg.upstreamAppURL)
	if err != nil {
		logger.Fatal("invalid UPSTREAM_APP_URL", zap.Error(err))
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", zap.Error(err))
		gateway.WriteError(w, http.StatusBadGateway, gateway.CodeUpstreamUnavailable, "bad gateway")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", gateway.HealthHandler())
	objHandler.Register(mux)
	cacheProxy.Register(mux)
	sessHandler.Register(mux)
	mux.Handle("/", proxy)

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
		OnReject: func(w http.ResponseWriter, r *http.Request) {
			gateway.WriteError(w, http.StatusServiceUnavailable, gateway.CodeRateLimited, "too many concurrent requests")
		},
	})(h)
	h = ratelimit.Middleware(ratelimit.Options{
		Service:            rlSvc,
		Stats:              stats,
		KeyHeader:          cfg.rateKeyHeader,
		TrustXForwardedFor: cfg.trustXFF,
		Skip:               func(r *http.Request) bool { return r.URL.Path == "/health" },
		OnReject: func(w http.ResponseWriter, r *http.Request, dec rldomain.Decision) {
			secs := int(dec.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			gateway.WriteError(w, http.StatusTooManyRequests, gateway.CodeRateLimited,
				fmt.Sprintf("rate limit exceeded, retry after %ds", secs))
		},
	})(h)
	h = gateway.Headers(gateway.HeaderOptions{AllowedOrigins: cfg.corsOrigins})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening",
		zap.String("addr", cfg.listenAddr),
		zap.String("appUpstream", cfg.upstreamAppURL),
		zap.String("contentUpstream", cfg.cacheUpstreamURL),
		zap.Int("rateLimit", cfg.rateLimit),
		zap.Duration("rateWindow", cfg.rateWindow),
		zap.Int("burstAllowance", cfg.rateBurst),
		zap.Duration("sessionTTL", cfg.sessionTTL),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

type config struct {
	listenAddr       string
	upstreamAppURL   string
	cacheUpstreamURL string

	cacheFetchTimeout time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	s3Bucket    string
	s3Region    string
	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string

	databaseDSN       string
	sessionTTL        time.Duration
	sessionSweepEvery time.Duration

	rateLimit       int
	rateWindow      time.Duration
	rateBurst       int
	rateBurstWindow time.Duration
	rateKeyHeader   string
	trustXFF        bool

	rateStatsEnabled   bool
	rateStatsBackend   string
	rateStatsTTL       time.Duration
	rateStatsTrackKeys bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	jwtSecret   string
	corsOrigins []string
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamAppURL = os.Getenv("UPSTREAM_APP_URL")
	cfg.cacheUpstreamURL = os.Getenv("CACHE_UPSTREAM_URL")
	cfg.cacheFetchTimeout = getenvDurationDefault("CACHE_FETCH_TIMEOUT", 30*time.Second)

	cfg.redisAddr = getenvDefault("REDIS_ADDR", "127.0.0.1:6379")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.s3Bucket = os.Getenv("S3_BUCKET")
	cfg.s3Region = getenvDefault("S3_REGION", "us-east-1")
	cfg.s3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.s3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.s3SecretKey = os.Getenv("S3_SECRET_KEY")

	cfg.databaseDSN = os.Getenv("DATABASE_DSN")
	cfg.sessionTTL = getenvDurationDefault("SESSION_TTL", 15*time.Minute)
	cfg.sessionSweepEvery = getenvDurationDefault("SESSION_SWEEP_EVERY", time.Minute)

	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 60)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", time.Minute)
	cfg.rateBurst = getenvIntDefault("RATE_BURST_ALLOWANCE", 0)
	cfg.rateBurstWindow = getenvDurationDefault("RATE_BURST_WINDOW", 10*time.Second)
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsBackend = strings.ToLower(getenvDefault("RATE_STATS_BACKEND", "redis"))
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.jwtSecret = os.Getenv("AUTH_JWT_SECRET")

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.corsOrigins = append(cfg.corsOrigins, o)
		}
	}

	if cfg.upstreamAppURL == "" {
		return config{}, errors.New("UPSTREAM_APP_URL is required")
	}
	if cfg.cacheUpstreamURL == "" {
		return config{}, errors.New("CACHE_UPSTREAM_URL is required")
	}
	if cfg.s3Bucket == "" {
		return config{}, errors.New("S3_BUCKET is required")
	}
	if cfg.databaseDSN == "" {
		return config{}, errors.New("DATABASE_DSN is required")
	}
	if cfg.jwtSecret == "" {
		return config{}, errors.New("AUTH_JWT_SECRET is required")
	}
	if cfg.rateLimit <= 0 {
		return config{}, errors.New("RATE_LIMIT must be > 0")
	}
	if cfg.rateStatsBackend != "redis" && cfg.rateStatsBackend != "memory" {
		return config{}, errors.New("RATE_STATS_BACKEND must be redis or memory")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

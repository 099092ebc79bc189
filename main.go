package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "fleetfuel-cloud/internal/api/http"
	"fleetfuel-cloud/internal/audit"
	"fleetfuel-cloud/internal/auth"
	garagerepo "fleetfuel-cloud/internal/garages/infrastructure/postgres"
	"fleetfuel-cloud/internal/observability/metrics"
	batchapp "fleetfuel-cloud/internal/settlement/application"
	settlementrepo "fleetfuel-cloud/internal/settlement/infrastructure/postgres"
	settlementinterfaces "fleetfuel-cloud/internal/settlement/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	transactionRepo := settlementrepo.NewTransactionRepository(db)
	batchRepo := settlementrepo.NewBatchRepository(db)
	garageRegistry := garagerepo.NewGarageRepository(db)

	settleCfg, err := batchapp.LoadConfig()
	if err != nil {
		logger.Fatalf("settlement config error: %v", err)
	}

	batchPublisher := settlementinterfaces.NewLoggingPublisher(logger)
	batchService, err := batchapp.NewBatchService(
		transactionRepo,
		batchRepo,
		garageRegistry,
		batchapp.SystemClock{},
		logger,
		batchapp.WithCreateTimeout(settleCfg.CreateTimeout),
		batchapp.WithPublisher(batchPublisher),
	)
	if err != nil {
		logger.Fatalf("batch service error: %v", err)
	}

	batchHandler, err := settlementinterfaces.NewBatchHandler(batchService, cfg.OrgID, auditRepo)
	if err != nil {
		logger.Fatalf("batch handler error: %v", err)
	}

	scheduler := batchapp.NewScheduler(batchService, settleCfg.Schedule.Owners, settleCfg.Schedule.DailyAt, logger)
	go scheduler.Start(context.Background())

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/batches", batchHandler)
	mux.Handle("/api/v1/batches/", batchHandler)
	mux.Handle("/api/v1/batches/create", batchHandler)
	mux.Handle("/api/v1/transactions", apihttp.NewTransactionsHandler(db, cfg.OrgID))
	mux.Handle("/api/v1/exports/batches.csv", apihttp.NewExportBatchesCSVHandler(db, cfg.OrgID))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	OrgID       string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		OrgID:       getenvDefault("ORG_ID", "org-demo"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

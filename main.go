package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"Civcalc/internal/auth"
	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/design"
	"Civcalc/internal/calc/loads"
	"Civcalc/internal/calc/material"
	"Civcalc/internal/calc/premium/autodesign"
	"Civcalc/internal/calc/premium/batch"
	"Civcalc/internal/calc/premium/importer"
	"Civcalc/internal/calc/report"
	"Civcalc/internal/calc/takeoff"
	"Civcalc/internal/config"
	"Civcalc/internal/logging"
	"Civcalc/internal/project"
	"Civcalc/internal/repo"
)

type store interface {
	repo.Users
	repo.Projects
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loadTable(path string) (*material.Table, error) {
	if path == "" {
		return material.Default()
	}
	return material.Load(path)
}

// HandleList registers the API routes on r.
func HandleList(r *mux.Router, cfg config.Config, tbl *material.Table, db store) {
	designEngine := design.NewEngine(tbl, arrange.New(tbl, arrange.DefaultConfig()))
	takeoffEngine := takeoff.NewEngine(tbl, boq.DefaultCatalogue())

	authEnv := &auth.Authenv{JWTKey: cfg.TokenKey, Users: db, Insecure: !cfg.TLS()}
	projectH := &project.Handler{Repo: db}
	designH := &design.Handler{Engine: designEngine}
	takeoffH := &takeoff.Handler{Engine: takeoffEngine}
	loadsH := &loads.Handler{}
	reportH := &report.Handler{Design: designEngine, Takeoff: takeoffEngine}
	autoH := &autodesign.Handler{Engine: designEngine}
	batchH := &batch.Handler{Engine: designEngine}
	importH := &importer.Handler{Engine: takeoffEngine}

	limiter := auth.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")
	api.HandleFunc("/loads", loadsH.Calc).Methods("POST")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	secureApi.HandleFunc("/design", projectH.Saving(repo.KindDesign, designH.Calc)).Methods("POST")
	secureApi.HandleFunc("/design/autodesign", autoH.Size).Methods("POST")
	secureApi.HandleFunc("/design/batch", batchH.Design).Methods("POST")
	secureApi.HandleFunc("/design/pdf", reportH.DesignPDF).Methods("POST")

	secureApi.HandleFunc("/takeoff", projectH.Saving(repo.KindTakeoff, takeoffH.Calc)).Methods("POST")
	secureApi.HandleFunc("/takeoff/import", importH.Takeoff).Methods("POST")
	secureApi.HandleFunc("/takeoff/xlsx", reportH.TakeoffXLSX).Methods("POST")
	secureApi.HandleFunc("/takeoff/pdf", reportH.TakeoffPDF).Methods("POST")

	secureApi.HandleFunc("/projects", projectH.List).Methods("GET")
	secureApi.HandleFunc("/projects", projectH.Create).Methods("POST")
	secureApi.HandleFunc("/projects/{id}/calculations", projectH.Calculations).Methods("GET")
	secureApi.HandleFunc("/calculations/{id}", projectH.Calculation).Methods("GET")
}

func newHandler(cfg config.Config, logger *log.Logger, tbl *material.Table, db store) http.Handler {
	r := mux.NewRouter()
	r.Use(logging.Middleware(logger))
	HandleList(r, cfg, tbl, db)
	return CORS(r)
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	tbl, err := loadTable(cfg.MaterialTable)
	if err != nil {
		return err
	}
	db, err := repo.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repo.Migrate(ctx, db); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, logger, tbl, repo.NewPostgres(db)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting server", "addr", cfg.Addr, "tls", cfg.TLS())
		var err error
		if cfg.TLS() {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, closing active connections")
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(os.Stderr, log.InfoLevel)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration", "err", err)
	}
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server", "err", err)
	}
}

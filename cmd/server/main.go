package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/seedwatch/seedwatch/datasource"
	"github.com/seedwatch/seedwatch/engine"
	"github.com/seedwatch/seedwatch/internal/config"
	"github.com/seedwatch/seedwatch/internal/logger"
	"github.com/seedwatch/seedwatch/notify"
	"github.com/seedwatch/seedwatch/ontology"
)

type Server struct {
	cfg    config.Config
	store  *ontology.Store
	engine *engine.Engine
	db     *sql.DB
	router *chi.Mux
}

func NewServer(cfg config.Config) (*Server, error) {
	store := ontology.NewStore(cfg.OntologyDir)
	if err := store.LoadAll(); err != nil {
		return nil, err
	}
	logger.Info("ontology loaded",
		"dir", cfg.OntologyDir,
		"domains", len(store.Domains()),
		"rules", len(store.BusinessRules("")))

	var db *sql.DB
	var source datasource.Source
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		source = datasource.NewPostgresSource(db)
	} else {
		logger.Warn("DATABASE_URL not set, live evaluation disabled")
	}

	var sink notify.Sink
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		sink = notify.NewTelegramSink(cfg.TelegramBotToken, cfg.TelegramChatID)
		logger.Info("telegram notifications enabled", "chat_id", cfg.TelegramChatID)
	} else {
		sink = notify.NewLogSink()
	}

	eng, err := engine.NewEngine(store, source, sink, engine.DispatcherConfig{
		SendTimeout: cfg.DispatchTimeout,
		Cooldown:    cfg.NotifyCooldown,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		engine: eng,
		db:     db,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Get("/health", s.handleRulesHealth)
		r.Post("/execute", s.handleExecuteRules)
		r.Post("/execute/live", s.handleExecuteRulesLive)
		r.Post("/test/scenario/{scenario}", s.handleTestScenario)
		r.Get("/{ruleId}", s.handleGetRule)
	})

	r.Route("/api/v1/ontology", func(r chi.Router) {
		r.Get("/", s.handleOntologySummary)
		r.Get("/domains", s.handleListDomains)
		r.Get("/domains/{domain}/concepts", s.handleDomainConcepts)
		r.Get("/relations", s.handleRelations)
		r.Get("/search/concepts", s.handleSearchConcepts)
		r.Get("/table-mappings", s.handleTableMappings)
		r.Get("/validate", s.handleValidate)
		r.Post("/reload", s.handleReload)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"ontology_loaded": s.store.Loaded(),
	})
}

// handleRulesHealth reports rule counts by priority, mirroring the overall
// summary but scoped to the rule engine.
func (s *Server) handleRulesHealth(w http.ResponseWriter, r *http.Request) {
	summary := s.store.Summary()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"rules_loaded":      summary.TotalRules,
		"rules_by_priority": summary.RulesByPriority,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	priority := ontology.Priority(r.URL.Query().Get("priority"))
	if priority != "" && !priority.Valid() {
		respondError(w, http.StatusBadRequest, "invalid priority", fmt.Errorf("must be high, medium or low, got %q", priority))
		return
	}

	rules := s.store.BusinessRules(priority)
	respondJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	rule, err := s.store.BusinessRuleByID(ruleID)
	if err != nil {
		if errors.Is(err, ontology.ErrRuleNotFound) {
			respondError(w, http.StatusNotFound, "rule not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleExecuteRules(w http.ResponseWriter, r *http.Request) {
	var req executeRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s.runAndRespond(w, r.Context(), req.toContext())
}

func (s *Server) handleExecuteRulesLive(w http.ResponseWriter, r *http.Request) {
	daysBack := s.cfg.LookbackDays
	if v := r.URL.Query().Get("days_back"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "days_back must be a positive integer", err)
			return
		}
		daysBack = n
	}

	startTime := time.Now()
	results, err := s.engine.ExecuteRulesWithLiveData(r.Context(), daysBack)
	if err != nil && results == nil {
		respondError(w, http.StatusServiceUnavailable, "live evaluation failed", err)
		return
	}

	respondResults(w, results, err, time.Since(startTime))
}

func (s *Server) handleTestScenario(w http.ResponseWriter, r *http.Request) {
	scenario := chi.URLParam(r, "scenario")

	req, err := mockScenario(scenario, time.Now())
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown scenario", err)
		return
	}

	s.runAndRespond(w, r.Context(), req.toContext())
}

func (s *Server) runAndRespond(w http.ResponseWriter, ctx context.Context, rc *engine.RuleContext) {
	startTime := time.Now()
	results, err := s.engine.ExecuteAllRules(ctx, rc)
	respondResults(w, results, err, time.Since(startTime))
}

func (s *Server) handleOntologySummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Summary())
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains := s.store.Domains()
	respondJSON(w, http.StatusOK, map[string]any{
		"domains": domains,
		"count":   len(domains),
	})
}

func (s *Server) handleDomainConcepts(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	concepts := s.store.DomainConcepts(domain)
	if len(concepts) == 0 {
		respondError(w, http.StatusNotFound, "domain not found", fmt.Errorf("no concepts for domain %q", domain))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"domain":   domain,
		"concepts": concepts,
	})
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	relations := s.store.DomainRelations(q.Get("from"), q.Get("to"))
	respondJSON(w, http.StatusOK, map[string]any{
		"relations": relations,
		"count":     len(relations),
	})
}

func (s *Server) handleSearchConcepts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"matches": s.store.SearchConcepts(query, q.Get("domain")),
	})
}

func (s *Server) handleTableMappings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"table_mappings": s.store.TableMappings(r.URL.Query().Get("domain")),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Validate(); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.store.LoadAll(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "reload failed, previous ontology retained", err)
		return
	}
	if err := s.engine.Reload(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "rule recompile failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"rules":  len(s.store.BusinessRules("")),
	})
}

// startScheduler runs a live evaluation pass on a fixed interval until ctx is
// cancelled. Failed passes are logged and the loop keeps going.
func (s *Server) startScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ScheduleInterval)
	defer ticker.Stop()

	logger.Info("scheduler started", "interval", s.cfg.ScheduleInterval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, s.cfg.ScheduleInterval)
			_, err := s.engine.ExecuteRulesWithLiveData(passCtx, s.cfg.LookbackDays)
			cancel()
			if err != nil {
				logger.Error("scheduled evaluation failed", "error", err)
			}
		}
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func respondResults(w http.ResponseWriter, results []engine.RuleResult, err error, elapsed time.Duration) {
	triggered := 0
	for _, r := range results {
		if r.Triggered {
			triggered++
		}
	}

	response := map[string]any{
		"results":         results,
		"rules_evaluated": len(results),
		"rules_triggered": triggered,
		"evaluation_time": elapsed.String(),
		"complete":        err == nil,
	}
	if err != nil {
		response["error"] = err.Error()
	}

	respondJSON(w, http.StatusOK, response)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	logger.SetLevel(level)

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.ScheduleInterval > 0 {
		if server.db == nil {
			logger.Fatal("SCHEDULE_INTERVAL requires DATABASE_URL")
		}
		go server.startScheduler(schedulerCtx)
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// Command forged is the run worker: it accepts run triggers over HTTP,
// executes each run against an ephemeral sandbox, and persists the outcome.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ChamsBouzaiene/forge/internal/config"
	"github.com/ChamsBouzaiene/forge/internal/engine"
	"github.com/ChamsBouzaiene/forge/internal/message"
	"github.com/ChamsBouzaiene/forge/internal/providers"
	"github.com/ChamsBouzaiene/forge/internal/runner"
	"github.com/ChamsBouzaiene/forge/internal/sandbox"
	"github.com/ChamsBouzaiene/forge/internal/step"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}

	ctx := context.Background()

	store, err := message.NewStore(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ Message store: %v", err)
	}
	defer store.Close()

	steps, err := step.NewMemoizer(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ Step store: %v", err)
	}
	defer steps.Close()

	llm, model, err := providers.NewLLMClientFromEnv()
	if err != nil {
		log.Fatalf("❌ LLM provider: %v", err)
	}
	log.Printf("🤖 Using model %s", model)

	sandboxCfg := sandbox.DefaultConfig()
	sandboxes, err := sandbox.NewDockerManager(sandboxCfg)
	if err != nil {
		log.Fatalf("❌ Sandbox manager: %v", err)
	}

	driver := &runner.Driver{
		Sandboxes:     sandboxes,
		Store:         store,
		Steps:         steps,
		LLM:           llm,
		Model:         model,
		MaxIterations: cfg.MaxIterations,
		HistoryWindow: cfg.HistoryWindow,
		DevPort:       sandboxCfg.DevPort,
		TTL:           sandboxCfg.TTL,
		Hooks:         engine.Hooks{engine.LoggerHook{L: log.Default()}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /runs", handleCreateRun(driver, cfg))
	mux.HandleFunc("GET /messages", handleListMessages(store))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Shutdown: %v", err)
	}
	log.Println("👋 Bye")
}

type runRequest struct {
	ProjectID string `json:"projectId"`
	Value     string `json:"value"`
	Template  string `json:"template"`
}

// handleCreateRun accepts a trigger and executes the run in the background.
// The response carries the run ID; the outcome lands in the message store.
func handleCreateRun(driver *runner.Driver, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.ProjectID == "" || req.Value == "" {
			http.Error(w, "projectId and value are required", http.StatusBadRequest)
			return
		}
		template := req.Template
		if template == "" {
			template = cfg.SandboxTemplate
		}

		trig := runner.Trigger{
			RunID:     uuid.New().String(),
			ProjectID: req.ProjectID,
			Prompt:    req.Value,
			Template:  template,
		}

		go func() {
			// The run outlives the HTTP request.
			if _, err := driver.Run(context.Background(), trig); err != nil {
				log.Printf("❌ Run %s: %v", trig.RunID, err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"runId": trig.RunID})
	}
}

func handleListMessages(store *message.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.URL.Query().Get("project_id")
		if projectID == "" {
			http.Error(w, "project_id is required", http.StatusBadRequest)
			return
		}

		msgs, err := store.ListRecent(r.Context(), projectID, 50)
		if err != nil {
			log.Printf("⚠️  List messages: %v", err)
			http.Error(w, "failed to list messages", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(msgs)
	}
}

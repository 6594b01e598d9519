package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docchat/features/chat"
	docfeature "docchat/features/document"
	syncfeature "docchat/features/sync"
	"docchat/internal/config"
	"docchat/internal/document"
	"docchat/internal/drivesync"
	"docchat/internal/middleware"
	"docchat/internal/rag"
	"docchat/internal/retrieval"
)

type VectorStore interface {
	AddChunks(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, k int) ([]retrieval.Hit, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
	CountChunks(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Completer interface {
	StreamLines(ctx context.Context, prompt string, emit func(line string) error) error
}

type DocumentSource interface {
	List(ctx context.Context, folderID string) ([]document.RemoteFile, error)
	Fetch(ctx context.Context, id string) (*document.Document, error)
}

type App struct {
	Handler     http.Handler
	RAGService  *rag.Service
	Coordinator *drivesync.Coordinator

	port int
}

// New wires services and routes. Optional dependencies (embedder, completer,
// source) may be nil; the endpoints depending on them answer with a
// configuration error instead.
func New(
	cfg *config.Config,
	vecStore VectorStore,
	embedder Embedder,
	completer Completer,
	source DocumentSource,
) (*App, error) {

	// Feature: Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	var retrievalService *retrieval.Service
	if embedder != nil {
		retrievalService = retrieval.NewService(embedder, vecStore, cfg.RelevanceThreshold, cfg.MaxRetrievalResults, queryLogger)
	}

	// Feature: RAG (ingestion + stats)
	processor := document.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	var retriever rag.Retriever
	if retrievalService != nil {
		retriever = retrievalService
	}
	ragService := rag.NewService(processor, embedder, vecStore, retriever, cfg.EmbeddingModel)

	// Feature: Drive Sync
	var coordinator *drivesync.Coordinator
	if source != nil {
		stateStore := drivesync.NewFileStore(cfg.SyncStatePath)
		coordinator = drivesync.NewCoordinator(source, ragService, stateStore, time.Duration(cfg.SyncIntervalHours)*time.Hour)
	}

	// Handlers
	var chatRetriever chat.Retriever
	if retrievalService != nil {
		chatRetriever = retrievalService
	}
	chatHandler := chat.NewHandler(chatRetriever, completer)

	var fetcher docfeature.Fetcher
	if source != nil {
		fetcher = source
	}
	documentHandler := docfeature.NewHandler(ragService, fetcher)

	var syncer syncfeature.Syncer
	if coordinator != nil {
		syncer = coordinator
	}
	syncHandler := syncfeature.NewHandler(syncer, cfg.DriveFolderID)

	// Middleware: CORS. Applied around the whole mux rather than per route:
	// the routes use method-constrained patterns, and ServeMux would answer a
	// preflight OPTIONS with 405 before a per-route wrapper ever ran.
	enableCORS := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat/stream", chatHandler.Stream)

	mux.HandleFunc("POST /documents/add", documentHandler.Add)
	mux.HandleFunc("DELETE /documents/clear", documentHandler.Clear)
	mux.HandleFunc("DELETE /documents/{id}", documentHandler.Delete)
	mux.HandleFunc("GET /documents/stats", documentHandler.Stats)

	mux.HandleFunc("POST /sync", syncHandler.Trigger)
	mux.HandleFunc("GET /sync/status", syncHandler.Status)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:     middleware.CorrelationID(enableCORS(mux)),
		RAGService:  ragService,
		Coordinator: coordinator,
		port:        cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"docchat/internal/adapter/gemini"
	"docchat/internal/adapter/googledrive"
	"docchat/internal/adapter/together"
	wstore "docchat/internal/adapter/weaviate"
	"docchat/internal/config"
)

// Dependencies holds every external connection the app is wired with.
// Optional fields stay nil when their credentials are absent; the features
// built on them degrade to a configuration error instead of blocking startup.
type Dependencies struct {
	VectorStore VectorStore
	Embedder    Embedder
	Completer   Completer
	DriveSource DocumentSource

	embedderCloser interface{ Close() error }
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Weaviate
	wCfg := weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	vecStore := wstore.NewStore(wClient)

	// Ensure Schema Retry
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	if err := EnsureSchemaWithRetry(ctx, vecStore, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}

	deps := &Dependencies{VectorStore: vecStore}

	if cfg.EmbeddingEnabled() {
		embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client error: %w", err)
		}
		deps.Embedder = embedder
		deps.embedderCloser = embedder
	} else {
		slog.Warn("GEMINI_API_KEY not set, ingestion and retrieval are disabled")
	}

	if cfg.ChatEnabled() {
		client := together.NewClient(cfg.TogetherAPIKey, cfg.CompletionModel, together.GenerationParams{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		}, time.Duration(cfg.CompletionTimeoutSeconds)*time.Second)
		client.SetBaseURL(cfg.TogetherBaseURL)
		deps.Completer = client
	} else {
		slog.Warn("TOGETHER_API_KEY not set, chat is disabled")
	}

	if cfg.DriveEnabled() {
		svc, err := googledrive.NewDriveService(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
		if err != nil {
			return nil, fmt.Errorf("drive client error: %w", err)
		}
		deps.DriveSource = googledrive.NewSource(svc, nil)
	} else {
		slog.Warn("google drive credentials not set, sync is disabled")
	}

	return deps, nil
}

// Close releases connections that hold resources. Safe on a partially built
// Dependencies.
func (d *Dependencies) Close() {
	if d.embedderCloser != nil {
		if err := d.embedderCloser.Close(); err != nil {
			slog.Warn("failed to close embedder client", "error", err)
		}
	}
}

// EnsureSchemaWithRetry keeps trying the schema check so the app survives the
// vector store coming up after it does.
func EnsureSchemaWithRetry(ctx context.Context, store VectorStore, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = store.EnsureSchema(ctx); err == nil {
			return nil
		}
		slog.Warn("failed to ensure vector schema, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/domain/model"
	"github.com/shifanka/recall/pkg/service/embedding"
	"github.com/shifanka/recall/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Embedding holds CLI flags for the embedding provider. When no
// credentials are configured the deterministic stub is used, so the rest
// of the system behaves identically with and without a live provider.
type Embedding struct {
	openaiAPIKey   string
	geminiProject  string
	geminiLocation string
	dimension      int
}

// Flags returns CLI flags for embedding configuration
func (e *Embedding) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key for embeddings",
			Category:    "Embedding",
			Sources:     cli.EnvVars("RECALL_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &e.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini embeddings",
			Category:    "Embedding",
			Sources:     cli.EnvVars("RECALL_GEMINI_PROJECT"),
			Destination: &e.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini embeddings",
			Category:    "Embedding",
			Value:       "us-central1",
			Sources:     cli.EnvVars("RECALL_GEMINI_LOCATION"),
			Destination: &e.geminiLocation,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding vector dimension",
			Category:    "Embedding",
			Value:       model.EmbeddingDimension,
			Sources:     cli.EnvVars("RECALL_EMBEDDING_DIMENSION"),
			Destination: &e.dimension,
		},
	}
}

// Dimension returns the configured embedding dimension
func (e *Embedding) Dimension() int {
	if e.dimension <= 0 {
		return model.EmbeddingDimension
	}
	return e.dimension
}

// Configure builds the embedder. OpenAI wins when both providers are
// configured; without credentials the deterministic stub is selected.
func (e *Embedding) Configure(ctx context.Context) (interfaces.Embedder, error) {
	switch {
	case e.openaiAPIKey != "":
		client, err := openai.New(ctx, e.openaiAPIKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		logging.Default().Info("Using OpenAI embeddings", "dimension", e.Dimension())
		return embedding.NewLLMEmbedder(client, e.Dimension()), nil

	case e.geminiProject != "":
		client, err := gemini.New(ctx, e.geminiProject, e.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		logging.Default().Info("Using Gemini embeddings",
			"project_id", e.geminiProject,
			"location", e.geminiLocation,
			"dimension", e.Dimension(),
		)
		return embedding.NewLLMEmbedder(client, e.Dimension()), nil

	default:
		logging.Default().Warn("No embedding credentials configured, using deterministic stub embeddings")
		return embedding.NewStubEmbedder(e.Dimension()), nil
	}
}

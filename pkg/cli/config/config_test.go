package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/shifanka/recall/pkg/cli/config"
	"github.com/shifanka/recall/pkg/service/embedding"
)

func TestRepositoryConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("memory", "", "")
		store := gt.R1(cfg.Configure(ctx)).NoError(t)
		gt.Value(t, store).NotNil()
		gt.NoError(t, store.Close())
	})

	t.Run("firestore requires project id", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("firestore", "", "")
		_, err := cfg.Configure(ctx)
		gt.Value(t, err).NotNil()
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("redis", "", "")
		_, err := cfg.Configure(ctx)
		gt.Value(t, err).NotNil()
	})
}

func TestVectorConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("chromem in-memory", func(t *testing.T) {
		cfg := config.NewVectorForTest("chromem", "")
		index := gt.R1(cfg.Configure(ctx, config.NewRepositoryForTest("memory", "", ""), 64)).NoError(t)
		gt.Value(t, index).NotNil()
		gt.NoError(t, index.Close())
	})

	t.Run("firestore requires project id", func(t *testing.T) {
		cfg := config.NewVectorForTest("firestore", "")
		_, err := cfg.Configure(ctx, config.NewRepositoryForTest("firestore", "", ""), 64)
		gt.Value(t, err).NotNil()
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := config.NewVectorForTest("upstash", "")
		_, err := cfg.Configure(ctx, config.NewRepositoryForTest("memory", "", ""), 64)
		gt.Value(t, err).NotNil()
	})
}

func TestEmbeddingConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("stub without credentials", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest("", "", 0)
		embedder := gt.R1(cfg.Configure(ctx)).NoError(t)
		gt.Value(t, embedder.Dimension()).Equal(1536)

		_, ok := embedder.(*embedding.StubEmbedder)
		gt.True(t, ok)
	})

	t.Run("dimension override", func(t *testing.T) {
		cfg := config.NewEmbeddingForTest("", "", 256)
		embedder := gt.R1(cfg.Configure(ctx)).NoError(t)
		gt.Value(t, embedder.Dimension()).Equal(256)
	})
}

func TestSearchConfigure(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg := config.NewSearchForTest("")
		opts := gt.R1(cfg.Configure()).NoError(t)
		gt.Array(t, opts).Length(0)
	})

	t.Run("loads TOML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "search.toml")
		content := "limit = 20\nmin_score = 0.5\ncache_ttl_seconds = 600\n"
		gt.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg := config.NewSearchForTest(path)
		opts := gt.R1(cfg.Configure()).NoError(t)
		gt.Array(t, opts).Length(3)
		gt.Value(t, cfg.Limit).Equal(20)
		gt.Value(t, cfg.MinScore).Equal(0.5)
		gt.Value(t, cfg.CacheTTLSeconds).Equal(600)
	})

	t.Run("rejects out-of-range min_score", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "search.toml")
		gt.NoError(t, os.WriteFile(path, []byte("min_score = 1.5\n"), 0o644))

		cfg := config.NewSearchForTest(path)
		_, err := cfg.Configure()
		gt.Value(t, err).NotNil()
	})

	t.Run("missing file surfaces error", func(t *testing.T) {
		cfg := config.NewSearchForTest("/no/such/search.toml")
		_, err := cfg.Configure()
		gt.Value(t, err).NotNil()
	})
}

package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/vector/chromem"
	"github.com/shifanka/recall/pkg/vector/firestore"
	"github.com/shifanka/recall/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Vector holds CLI flags for the similarity index backend. The firestore
// backend shares project/database flags with the Repository config.
type Vector struct {
	backend string
	path    string
}

// Flags returns CLI flags for similarity index configuration
func (v *Vector) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vector-backend",
			Usage:       "Similarity index backend (firestore or chromem)",
			Value:       "chromem",
			Sources:     cli.EnvVars("RECALL_VECTOR_BACKEND"),
			Destination: &v.backend,
		},
		&cli.StringFlag{
			Name:        "vector-path",
			Usage:       "Persistence directory for the chromem backend (in-memory when empty)",
			Sources:     cli.EnvVars("RECALL_VECTOR_PATH"),
			Destination: &v.path,
		},
	}
}

// Backend returns the configured backend type
func (v *Vector) Backend() string {
	return v.backend
}

// Configure initializes and returns a similarity index. The Firestore
// backend reuses the repository's project and database settings so both
// stores live in the same database.
func (v *Vector) Configure(ctx context.Context, repo *Repository, dimension int) (interfaces.VectorIndex, error) {
	switch v.backend {
	case "firestore":
		if repo.ProjectID() == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore vector backend")
		}
		index, err := firestore.New(ctx, repo.ProjectID(), repo.DatabaseID())
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore vector index")
		}
		logging.Default().Info("Using Firestore similarity index",
			"project_id", repo.ProjectID(),
			"database_id", repo.DatabaseID(),
		)
		return index, nil

	case "chromem":
		index, err := chromem.New(v.path, dimension)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize chromem vector index")
		}
		if v.path == "" {
			logging.Default().Info("Using in-memory chromem similarity index (development mode)")
		} else {
			logging.Default().Info("Using persistent chromem similarity index", "path", v.path)
		}
		return index, nil

	default:
		return nil, goerr.New("invalid vector backend", goerr.V("backend", v.backend))
	}
}

package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/shifanka/recall/pkg/domain/interfaces"
	"github.com/shifanka/recall/pkg/repository/firestore"
	"github.com/shifanka/recall/pkg/repository/memory"
	"github.com/shifanka/recall/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for the attribute store backend
type Repository struct {
	backend    string
	projectID  string
	databaseID string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Attribute store backend (firestore or memory)",
			Value:       "memory",
			Sources:     cli.EnvVars("RECALL_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("RECALL_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("RECALL_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
	}
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Configure initializes and returns an attribute store based on the
// configured backend. The caller is responsible for calling Close() on
// the returned store.
func (r *Repository) Configure(ctx context.Context) (interfaces.AttributeStore, error) {
	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		store, err := firestore.New(ctx, r.projectID, r.databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore attribute store")
		}
		logging.Default().Info("Using Firestore attribute store",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return store, nil

	case "memory":
		logging.Default().Info("Using in-memory attribute store (development mode)")
		return memory.New()

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}

package config

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseID string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		databaseID: databaseID,
	}
}

// NewVectorForTest creates a Vector config for testing purposes
func NewVectorForTest(backend, path string) *Vector {
	return &Vector{
		backend: backend,
		path:    path,
	}
}

// NewEmbeddingForTest creates an Embedding config for testing purposes
func NewEmbeddingForTest(openaiAPIKey, geminiProject string, dimension int) *Embedding {
	return &Embedding{
		openaiAPIKey:  openaiAPIKey,
		geminiProject: geminiProject,
		dimension:     dimension,
	}
}

// NewSearchForTest creates a Search config for testing purposes
func NewSearchForTest(path string) *Search {
	return &Search{path: path}
}

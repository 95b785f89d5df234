package domain

// VectorConfig holds query vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model      string
	Dimensions int
}

// DefaultVectorConfig returns the default query embedding configuration.
// Corpus indexes are built with the same model; changing it requires a reindex.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	}
}

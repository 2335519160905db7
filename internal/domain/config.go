package domain

// KeyPrefix is the default namespace for every key kbquery reads or writes.
const KeyPrefix = "kb:"

// DefaultCollection is the collection populated by the onboarding ingestion pipeline.
const DefaultCollection = "hr_onboarding_kb"

// VectorConfig describes the embedding model the collection was built with.
type VectorConfig struct {
	Model      string
	Dimensions int
}

// DefaultVectorConfig returns the settings of the model used at ingestion time.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:      "all-MiniLM-L6-v2",
		Dimensions: 384,
	}
}

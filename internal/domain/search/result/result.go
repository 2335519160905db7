package result

// Record is a single retrieved chunk: its content and the metadata stored with it.
type Record struct {
	id       string
	score    float64
	content  string
	metadata map[string]string
}

// New creates a record.
func New(id string, score float64, content string, metadata map[string]string) Record {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return Record{id: id, score: score, content: content, metadata: metadata}
}

// ID returns the document identifier within the collection.
func (r *Record) ID() string { return r.id }

// Score returns the store-reported cosine similarity.
func (r *Record) Score() float64 { return r.score }

// Content returns the chunk text.
func (r *Record) Content() string { return r.content }

// Metadata returns the stored metadata fields.
func (r *Record) Metadata() map[string]string { return r.metadata }

// Get returns a single metadata value.
func (r *Record) Get(key string) string { return r.metadata[key] }

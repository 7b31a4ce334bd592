package transcripts

// Chunk is the unit of retrieval: a bounded span of transcript text plus
// provenance metadata. Chunks are immutable once created by the loader.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Metadata records where a chunk came from. Company and Date fall back to
// "unknown" when the source path does not follow the corpus layout.
type Metadata struct {
	Company string `json:"company"`
	Date    string `json:"date"`
	Source  string `json:"source"`
	ChunkID string `json:"chunk_id"`
}

package models

// RetrievedChunk is a single similarity hit mapped back to its source.
type RetrievedChunk struct {
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// RetrievedContext is the ranked context window for answer generation.
// SourceURLs is deduplicated, preserving the rank order of first appearance.
type RetrievedContext struct {
	Chunks     []RetrievedChunk `json:"chunks"`
	SourceURLs []string         `json:"source_urls"`
}

// Empty reports whether retrieval found nothing usable.
func (c *RetrievedContext) Empty() bool {
	return c == nil || len(c.Chunks) == 0
}

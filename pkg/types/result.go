package types

// SearchResult is a single ranked hit from a similarity search.
type SearchResult struct {
	ChunkID   string  `json:"chunkId"`
	ProjectID string  `json:"projectId"`
	FilePath  string  `json:"filePath"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Score     float64 `json:"score"` // Cosine similarity, descending
	Content   string  `json:"content"`
}

// Validate checks if the search result is well formed.
func (r *SearchResult) Validate() error {
	if r.ChunkID == "" {
		return ErrMissingFilePath
	}
	if r.Content == "" {
		return ErrEmptyContent
	}
	if r.Score < -1 || r.Score > 1 {
		return ErrInvalidScore
	}
	return nil
}

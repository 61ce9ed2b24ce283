package config

// DefaultSourceURLs seed the index when no sources are configured.
var DefaultSourceURLs = []string{
	"https://www.shermanstravel.com/advice/top-10-caribbean-cruise-destinations",
	"https://www.shermanstravel.com/advice/top-10-mediterranean-cruise-destinations",
	"https://www.shermanstravel.com/advice/top-10-alaska-cruise-destinations",
	"https://www.shermanstravel.com/advice/top-10-northern-europe-cruise-destinations",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/annai/data/db/chat.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/annai/data/indices/chunks.json"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.MaxInputTokens == 0 {
		cfg.Embedding.MaxInputTokens = 8000
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.RetryBaseDelayMS == 0 {
		cfg.Embedding.RetryBaseDelayMS = 500
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "gpt-4o-mini"
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.3
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 500
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.BoundaryLookback == 0 {
		cfg.Ingest.BoundaryLookback = 200
	}
	if cfg.Ingest.MinContentLength == 0 {
		cfg.Ingest.MinContentLength = 50
	}
	if cfg.Ingest.PreviewLength == 0 {
		cfg.Ingest.PreviewLength = 500
	}
	if cfg.Ingest.SourceTag == "" {
		cfg.Ingest.SourceTag = "web"
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.FetchTimeoutSeconds == 0 {
		cfg.Ingest.FetchTimeoutSeconds = 30
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.1
	}
	if cfg.Sources.URLs == nil {
		cfg.Sources.URLs = append([]string(nil), DefaultSourceURLs...)
	}
}

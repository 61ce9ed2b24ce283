package models

import "time"

// ChatExchange is a persisted question/answer pair with its sources.
type ChatExchange struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	SourceURLs []string  `json:"source_urls"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatRequest is the body of a chat query.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the answer returned to the caller. Status mirrors the HTTP
// status the original API embedded in its payload.
type ChatResponse struct {
	Status     int      `json:"status"`
	Answer     string   `json:"answer"`
	SourceURLs []string `json:"source_urls"`
}

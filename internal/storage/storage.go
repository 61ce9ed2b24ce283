// Package storage persists chat history.
package storage

import (
	"context"

	"github.com/hyperjump/annai/internal/models"
)

// Storage records question/answer exchanges.
type Storage interface {
	SaveExchange(ctx context.Context, exchange *models.ChatExchange) error
	ListExchanges(ctx context.Context, limit int) ([]*models.ChatExchange, error)
	CountExchanges(ctx context.Context) (int, error)
	Close() error
}

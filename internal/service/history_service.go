package service

import (
	"context"
	"fmt"

	"github.com/Elmasricoweb/mas-rico-internet/internal/domain"
)

// HistoryService serves the settlement ledger read side.
type HistoryService struct {
	history domain.HistoryStore
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(history domain.HistoryStore) *HistoryService {
	return &HistoryService{history: history}
}

// List returns history events newest first.
func (s *HistoryService) List(ctx context.Context, opts domain.ListOpts) ([]domain.HistoryEvent, error) {
	events, err := s.history.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("history_service: list: %w", err)
	}
	return events, nil
}

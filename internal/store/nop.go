package store

import (
	"context"

	"github.com/amishk599/jobsignal/internal/model"
)

// NopStore is a no-op snapshot store used in dry-run mode. Every save
// reports success and nothing is ever listed.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) SaveSnapshot(context.Context, model.Snapshot) (bool, error) { return true, nil }
func (s *NopStore) Snapshots(context.Context, int) ([]model.Snapshot, error)   { return nil, nil }

package storage

import (
	"github.com/cuemby/drover/pkg/types"
)

// Store is the last-known-snapshot cache. It holds only controller-derived
// state; expected-status hints are deliberately never persisted.
type Store interface {
	PutSnapshot(snapshot *types.NodeSnapshot) error
	GetSnapshot(nodeID string) (*types.NodeSnapshot, error)
	ListSnapshots() ([]*types.NodeSnapshot, error)
	DeleteSnapshot(nodeID string) error

	Close() error
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cuemby/drover/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSnapshots = []byte("snapshots")
)

// ErrSnapshotNotFound indicates no cached snapshot exists for the node
var ErrSnapshotNotFound = errors.New("snapshot not found")

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the snapshot cache in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "drover.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// PutSnapshot stores the snapshot, replacing any previous one (upsert)
func (s *BoltStore) PutSnapshot(snapshot *types.NodeSnapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		return b.Put([]byte(snapshot.Node.ID), data)
	})
}

// GetSnapshot returns the cached snapshot for the node
func (s *BoltStore) GetSnapshot(nodeID string) (*types.NodeSnapshot, error) {
	var snapshot types.NodeSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		data := b.Get([]byte(nodeID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, nodeID)
		}
		return json.Unmarshal(data, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListSnapshots returns all cached snapshots
func (s *BoltStore) ListSnapshots() ([]*types.NodeSnapshot, error) {
	var snapshots []*types.NodeSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.ForEach(func(k, v []byte) error {
			var snapshot types.NodeSnapshot
			if err := json.Unmarshal(v, &snapshot); err != nil {
				return err
			}
			snapshots = append(snapshots, &snapshot)
			return nil
		})
	})
	return snapshots, err
}

// DeleteSnapshot removes the node's cached snapshot
func (s *BoltStore) DeleteSnapshot(nodeID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(nodeID))
	})
}

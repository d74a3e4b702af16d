// ABOUTME: Per-room shared-history session lists and parked shared history
// ABOUTME: Append-only lists; taking parked history is a read-and-clear

package cryptostore

import (
	"context"

	"maunium.net/go/mautrix/id"
)

// AddSharedHistorySession appends a session to the room's
// shared-history list.
func (s *FlatStore) AddSharedHistorySession(ctx context.Context, roomID id.RoomID, ref SessionRef) error {
	key := sharedHistoryKey(roomID)
	refs, _, err := getJSON[[]SessionRef](ctx, s.backend, key)
	if err != nil {
		return err
	}
	refs = append(refs, ref)
	return putJSON(ctx, s.backend, key, refs)
}

// GetSharedHistorySessions returns the room's shared-history list, nil
// when the room has none.
func (s *FlatStore) GetSharedHistorySessions(ctx context.Context, roomID id.RoomID) ([]SessionRef, error) {
	refs, _, err := getJSON[[]SessionRef](ctx, s.backend, sharedHistoryKey(roomID))
	return refs, err
}

// ParkSharedHistory appends a parked entry to the room's list.
func (s *FlatStore) ParkSharedHistory(ctx context.Context, roomID id.RoomID, parked *ParkedSharedHistory) error {
	key := parkedSharedHistoryKey(roomID)
	entries, _, err := getJSON[[]*ParkedSharedHistory](ctx, s.backend, key)
	if err != nil {
		return err
	}
	entries = append(entries, parked)
	return putJSON(ctx, s.backend, key, entries)
}

// TakeParkedSharedHistory drains the room's parked list: it returns the
// current entries and deletes the underlying key, so a second take
// finds nothing.
func (s *FlatStore) TakeParkedSharedHistory(ctx context.Context, roomID id.RoomID) ([]*ParkedSharedHistory, error) {
	key := parkedSharedHistoryKey(roomID)
	entries, _, err := getJSON[[]*ParkedSharedHistory](ctx, s.backend, key)
	if err != nil {
		return nil, err
	}
	if err := s.backend.Remove(ctx, key); err != nil {
		return nil, err
	}
	return entries, nil
}

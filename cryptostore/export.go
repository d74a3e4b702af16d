// ABOUTME: Bulk export batches, batch deletion, and whole-namespace delete
// ABOUTME: Batch getters return nil specifically when zero entries exist

package cryptostore

import (
	"context"
	"strings"
)

// sessionBatchSize bounds one export batch for both session kinds.
const sessionBatchSize = 50

// GetSessionBatch returns up to sessionBatchSize stored sessions. It
// returns nil, not an empty slice, when no sessions exist at all, so
// callers can tell "exhausted" from "nothing was ever here".
func (s *FlatStore) GetSessionBatch(ctx context.Context) ([]SessionEntry, error) {
	keys, err := s.keysWithPrefix(ctx, sessionTag+keySeparator)
	if err != nil {
		return nil, err
	}
	var entries []SessionEntry
	for _, key := range keys {
		if len(entries) >= sessionBatchSize {
			break
		}
		ref, err := splitRefKey(key, sessionTag)
		if err != nil {
			return nil, err
		}
		session, found, err := getJSON[*OlmSession](ctx, s.backend, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		entries = append(entries, SessionEntry{Ref: ref, Session: session})
	}
	return entries, nil
}

// DeleteSessionBatch removes the sessions named by refs. Refs with a
// missing component are silently skipped.
func (s *FlatStore) DeleteSessionBatch(ctx context.Context, refs []SessionRef) error {
	for _, ref := range refs {
		if ref.SenderKey == "" || ref.SessionID == "" {
			continue
		}
		if err := s.backend.Remove(ctx, sessionKey(ref)); err != nil {
			return err
		}
	}
	return nil
}

// GetGroupSessionBatch returns up to sessionBatchSize stored group
// sessions, each flagged with its backup membership. It returns nil
// when no group sessions exist at all.
func (s *FlatStore) GetGroupSessionBatch(ctx context.Context) ([]GroupSessionEntry, error) {
	keys, err := s.keysWithPrefix(ctx, groupSessionTag+keySeparator)
	if err != nil {
		return nil, err
	}
	needsBackup, _, err := getJSON[map[string]bool](ctx, s.backend, sessionsNeedingBackupKey)
	if err != nil {
		return nil, err
	}
	var entries []GroupSessionEntry
	for _, key := range keys {
		if len(entries) >= sessionBatchSize {
			break
		}
		ref, err := splitRefKey(key, groupSessionTag)
		if err != nil {
			return nil, err
		}
		session, found, err := getJSON[*MegolmSession](ctx, s.backend, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		entries = append(entries, GroupSessionEntry{
			Ref:         ref,
			Session:     session,
			NeedsBackup: needsBackup[encodeRef(ref)],
		})
	}
	return entries, nil
}

// DeleteGroupSessionBatch removes the group sessions named by refs.
// Refs with a missing component are silently skipped.
func (s *FlatStore) DeleteGroupSessionBatch(ctx context.Context, refs []SessionRef) error {
	for _, ref := range refs {
		if ref.SenderKey == "" || ref.SessionID == "" {
			continue
		}
		if err := s.backend.Remove(ctx, groupSessionKey(ref)); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllData removes every key under the store's root namespace and
// nothing else.
func (s *FlatStore) DeleteAllData(ctx context.Context) error {
	keys, err := s.backend.ListKeys(ctx)
	if err != nil {
		return err
	}
	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, rootPrefix) {
			continue
		}
		if err := s.backend.Remove(ctx, key); err != nil {
			return err
		}
		removed++
	}
	s.logger.Info("deleted all crypto data", "keys_removed", removed)
	return nil
}

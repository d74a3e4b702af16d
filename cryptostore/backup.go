// ABOUTME: Backup membership set over group sessions pending key backup
// ABOUTME: One persisted map, joined against live session data on read

package cryptostore

import (
	"context"
)

// MarkSessionsNeedingBackup adds the given sessions to the backup
// membership set and persists it.
func (s *FlatStore) MarkSessionsNeedingBackup(ctx context.Context, refs []SessionRef) error {
	return s.updateBackupSet(ctx, func(set map[string]bool) {
		for _, ref := range refs {
			set[encodeRef(ref)] = true
		}
	})
}

// UnmarkSessionsNeedingBackup removes the given sessions from the
// backup membership set and persists it.
func (s *FlatStore) UnmarkSessionsNeedingBackup(ctx context.Context, refs []SessionRef) error {
	return s.updateBackupSet(ctx, func(set map[string]bool) {
		for _, ref := range refs {
			delete(set, encodeRef(ref))
		}
	})
}

func (s *FlatStore) updateBackupSet(ctx context.Context, mutate func(map[string]bool)) error {
	set, _, err := getJSON[map[string]bool](ctx, s.backend, sessionsNeedingBackupKey)
	if err != nil {
		return err
	}
	if set == nil {
		set = make(map[string]bool)
	}
	mutate(set)
	return putJSON(ctx, s.backend, sessionsNeedingBackupKey, set)
}

// CountSessionsNeedingBackup reports the membership set's size without
// touching group-session data.
func (s *FlatStore) CountSessionsNeedingBackup(ctx context.Context) (int, error) {
	set, _, err := getJSON[map[string]bool](ctx, s.backend, sessionsNeedingBackupKey)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

// GetSessionsNeedingBackup joins the membership set against the live
// group-session data. Membership entries whose session has since been
// deleted are logged and skipped: the set is a best-effort index, not
// authoritative. A limit greater than zero stops the join early.
func (s *FlatStore) GetSessionsNeedingBackup(ctx context.Context, limit int) ([]BackupEntry, error) {
	set, _, err := getJSON[map[string]bool](ctx, s.backend, sessionsNeedingBackupKey)
	if err != nil {
		return nil, err
	}

	var entries []BackupEntry
	for composite := range set {
		if limit > 0 && len(entries) >= limit {
			break
		}
		ref, err := decodeRef(composite)
		if err != nil {
			return nil, err
		}
		session, found, err := getJSON[*MegolmSession](ctx, s.backend, groupSessionKey(ref))
		if err != nil {
			return nil, err
		}
		if !found {
			s.logger.Warn("session needing backup no longer exists",
				"sender_key", ref.SenderKey, "session_id", ref.SessionID)
			continue
		}
		entries = append(entries, BackupEntry{Ref: ref, Session: session})
	}
	return entries, nil
}

// ABOUTME: Inbound Megolm group session operations plus withheld records
// ABOUTME: Add is write-once, Put overwrites; Get joins with the withheld record

package cryptostore

import (
	"context"

	"maunium.net/go/mautrix/event"
)

// GetGroupSession delivers the group session stored under ref together
// with its withheld record, either of which may be nil.
func (s *FlatStore) GetGroupSession(ctx context.Context, b *Batch, ref SessionRef, fn func(session *MegolmSession, withheld *event.RoomKeyWithheldEventContent)) {
	b.Execute(func() error {
		session, _, err := getJSON[*MegolmSession](ctx, s.backend, groupSessionKey(ref))
		if err != nil {
			return err
		}
		withheld, _, err := getJSON[*event.RoomKeyWithheldEventContent](ctx, s.backend, withheldKey(ref))
		if err != nil {
			return err
		}
		fn(session, withheld)
		return nil
	})
}

// AddGroupSession stores a group session only if none exists under ref.
// The first write wins; later adds are silently skipped.
func (s *FlatStore) AddGroupSession(ctx context.Context, b *Batch, ref SessionRef, session *MegolmSession) {
	b.Execute(func() error {
		key := groupSessionKey(ref)
		_, found, err := s.backend.Get(ctx, key)
		if err != nil {
			return err
		}
		if found {
			s.logger.Debug("group session already exists, skipping add",
				"sender_key", ref.SenderKey, "session_id", ref.SessionID)
			return nil
		}
		return putJSON(ctx, s.backend, key, session)
	})
}

// PutGroupSession stores a group session, overwriting any previous
// value under ref.
func (s *FlatStore) PutGroupSession(ctx context.Context, b *Batch, ref SessionRef, session *MegolmSession) {
	b.Execute(func() error {
		return putJSON(ctx, s.backend, groupSessionKey(ref), session)
	})
}

// PutWithheldRecord stores the withheld record for a group session.
func (s *FlatStore) PutWithheldRecord(ctx context.Context, b *Batch, ref SessionRef, withheld *event.RoomKeyWithheldEventContent) {
	b.Execute(func() error {
		return putJSON(ctx, s.backend, withheldKey(ref), withheld)
	})
}

// ForEachGroupSession delivers every stored group session one at a
// time, in unspecified order, followed by one terminal
// fn(SessionRef{}, nil).
func (s *FlatStore) ForEachGroupSession(ctx context.Context, b *Batch, fn func(ref SessionRef, session *MegolmSession)) {
	b.Execute(func() error {
		keys, err := s.keysWithPrefix(ctx, groupSessionTag+keySeparator)
		if err != nil {
			return err
		}
		for _, key := range keys {
			ref, err := splitRefKey(key, groupSessionTag)
			if err != nil {
				return err
			}
			session, found, err := getJSON[*MegolmSession](ctx, s.backend, key)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			fn(ref, session)
		}
		fn(SessionRef{}, nil)
		return nil
	})
}

// CountGroupSessions reports how many group sessions are stored.
func (s *FlatStore) CountGroupSessions(ctx context.Context) (int, error) {
	keys, err := s.keysWithPrefix(ctx, groupSessionTag+keySeparator)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// ABOUTME: Olm session operations: get, per-device map, list-all, store, count
// ABOUTME: Listing is a prefix-filtered namespace scan with per-key fetches

package cryptostore

import (
	"context"

	"maunium.net/go/mautrix/id"
)

// GetSession delivers the session stored under ref, or nil when absent.
func (s *FlatStore) GetSession(ctx context.Context, b *Batch, ref SessionRef, fn func(session *OlmSession)) {
	b.Execute(func() error {
		session, _, err := getJSON[*OlmSession](ctx, s.backend, sessionKey(ref))
		if err != nil {
			return err
		}
		fn(session)
		return nil
	})
}

// GetSessionsForDevice delivers every session stored for one device
// key, as a map from session ID to session. The map is empty, not nil,
// when the device has no sessions.
func (s *FlatStore) GetSessionsForDevice(ctx context.Context, b *Batch, senderKey id.SenderKey, fn func(sessions map[id.SessionID]*OlmSession)) {
	b.Execute(func() error {
		keys, err := s.keysWithPrefix(ctx, sessionPrefix(senderKey))
		if err != nil {
			return err
		}
		sessions := make(map[id.SessionID]*OlmSession, len(keys))
		for _, key := range keys {
			ref, err := splitRefKey(key, sessionTag)
			if err != nil {
				return err
			}
			session, found, err := getJSON[*OlmSession](ctx, s.backend, key)
			if err != nil {
				return err
			}
			if found {
				sessions[ref.SessionID] = session
			}
		}
		fn(sessions)
		return nil
	})
}

// ForEachSession delivers every stored session one at a time, in
// unspecified order, followed by one terminal fn(SessionRef{}, nil).
func (s *FlatStore) ForEachSession(ctx context.Context, b *Batch, fn func(ref SessionRef, session *OlmSession)) {
	b.Execute(func() error {
		keys, err := s.keysWithPrefix(ctx, sessionTag+keySeparator)
		if err != nil {
			return err
		}
		for _, key := range keys {
			ref, err := splitRefKey(key, sessionTag)
			if err != nil {
				return err
			}
			session, found, err := getJSON[*OlmSession](ctx, s.backend, key)
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

// PutSession stores a session, overwriting any previous value under the
// same ref.
func (s *FlatStore) PutSession(ctx context.Context, b *Batch, ref SessionRef, session *OlmSession) {
	b.Execute(func() error {
		return putJSON(ctx, s.backend, sessionKey(ref), session)
	})
}

// CountSessions reports how many sessions are stored across all
// devices.
func (s *FlatStore) CountSessions(ctx context.Context) (int, error) {
	keys, err := s.keysWithPrefix(ctx, sessionTag+keySeparator)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

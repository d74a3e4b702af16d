// ABOUTME: Store interface and FlatStore implementation over a kv.Backend
// ABOUTME: Singleton entities, room config, secret keys, migration state, batch plumbing

package cryptostore

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.mau.fi/util/jsontime"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/olmstore/kv"
)

// Store is the full data-access contract the encryption subsystem needs
// from its storage layer.
//
// Operations taking a *Batch run inside that batch: their errors settle
// the batch rather than being returned, and reads deliver their result
// through a callback. An absent entity is delivered as the zero value
// (nil pointer, empty string), never as an error. Operations without a
// *Batch talk to the backend directly and return their error.
type Store interface {
	// RunBatch opens a batch, passes it to fn, then waits for every
	// operation fn registered to finish. It returns fn's error, or the
	// batch's first operation error.
	RunBatch(ctx context.Context, fn func(b *Batch) error) error

	// Account pickle.
	GetAccount(ctx context.Context, b *Batch, fn func(pickle string))
	PutAccount(ctx context.Context, b *Batch, pickle string)

	// Cross-signing keys, stored as one opaque blob.
	GetCrossSigningKeys(ctx context.Context, b *Batch, fn func(data json.RawMessage))
	PutCrossSigningKeys(ctx context.Context, b *Batch, data json.RawMessage)

	// Secret-storage private keys, one opaque blob per type tag.
	GetSecretStoreKey(ctx context.Context, b *Batch, keyType string, fn func(data json.RawMessage))
	PutSecretStoreKey(ctx context.Context, b *Batch, keyType string, data json.RawMessage)

	// Device data singleton.
	GetDeviceData(ctx context.Context, b *Batch, fn func(data json.RawMessage))
	PutDeviceData(ctx context.Context, b *Batch, data json.RawMessage)

	// Room encryption configuration.
	PutRoomEncryption(ctx context.Context, b *Batch, roomID id.RoomID, content *event.EncryptionEventContent)
	ForEachRoomEncryption(ctx context.Context, b *Batch, fn func(roomID id.RoomID, content *event.EncryptionEventContent))

	// Olm sessions.
	GetSession(ctx context.Context, b *Batch, ref SessionRef, fn func(session *OlmSession))
	GetSessionsForDevice(ctx context.Context, b *Batch, senderKey id.SenderKey, fn func(sessions map[id.SessionID]*OlmSession))
	ForEachSession(ctx context.Context, b *Batch, fn func(ref SessionRef, session *OlmSession))
	PutSession(ctx context.Context, b *Batch, ref SessionRef, session *OlmSession)
	CountSessions(ctx context.Context) (int, error)

	// Inbound Megolm group sessions. Add is write-once; Put overwrites.
	GetGroupSession(ctx context.Context, b *Batch, ref SessionRef, fn func(session *MegolmSession, withheld *event.RoomKeyWithheldEventContent))
	AddGroupSession(ctx context.Context, b *Batch, ref SessionRef, session *MegolmSession)
	PutGroupSession(ctx context.Context, b *Batch, ref SessionRef, session *MegolmSession)
	PutWithheldRecord(ctx context.Context, b *Batch, ref SessionRef, withheld *event.RoomKeyWithheldEventContent)
	ForEachGroupSession(ctx context.Context, b *Batch, fn func(ref SessionRef, session *MegolmSession))
	CountGroupSessions(ctx context.Context) (int, error)

	// Outgoing key requests.
	CreateOrFetchKeyRequest(ctx context.Context, req *OutgoingKeyRequest) (*OutgoingKeyRequest, error)
	GetKeyRequest(ctx context.Context, body RequestBody) (*OutgoingKeyRequest, error)
	GetKeyRequestByState(ctx context.Context, states ...KeyRequestState) (*OutgoingKeyRequest, error)
	GetAllKeyRequestsByState(ctx context.Context, state KeyRequestState) ([]*OutgoingKeyRequest, error)
	GetKeyRequestsByTarget(ctx context.Context, target DeviceRef, states ...KeyRequestState) ([]*OutgoingKeyRequest, error)
	UpdateKeyRequest(ctx context.Context, requestID string, expectedState KeyRequestState, update func(*OutgoingKeyRequest)) (*OutgoingKeyRequest, error)
	DeleteKeyRequest(ctx context.Context, requestID string, expectedState KeyRequestState) (*OutgoingKeyRequest, error)

	// Session problem log and error-notification tracking.
	AddSessionProblem(ctx context.Context, senderKey id.SenderKey, problemType string, fixed bool) error
	GetSessionProblem(ctx context.Context, senderKey id.SenderKey, timestamp jsontime.UnixMilli) (*SessionProblem, error)
	FilterUnnotifiedErrorDevices(ctx context.Context, devices []DeviceRef) ([]DeviceRef, error)

	// Backup membership bookkeeping.
	MarkSessionsNeedingBackup(ctx context.Context, refs []SessionRef) error
	UnmarkSessionsNeedingBackup(ctx context.Context, refs []SessionRef) error
	CountSessionsNeedingBackup(ctx context.Context) (int, error)
	GetSessionsNeedingBackup(ctx context.Context, limit int) ([]BackupEntry, error)

	// Shared-history lists.
	AddSharedHistorySession(ctx context.Context, roomID id.RoomID, ref SessionRef) error
	GetSharedHistorySessions(ctx context.Context, roomID id.RoomID) ([]SessionRef, error)
	ParkSharedHistory(ctx context.Context, roomID id.RoomID, parked *ParkedSharedHistory) error
	TakeParkedSharedHistory(ctx context.Context, roomID id.RoomID) ([]*ParkedSharedHistory, error)

	// Bulk export and deletion.
	GetSessionBatch(ctx context.Context) ([]SessionEntry, error)
	DeleteSessionBatch(ctx context.Context, refs []SessionRef) error
	GetGroupSessionBatch(ctx context.Context) ([]GroupSessionEntry, error)
	DeleteGroupSessionBatch(ctx context.Context, refs []SessionRef) error

	// Migration state.
	GetMigrationState(ctx context.Context) (MigrationState, error)
	SetMigrationState(ctx context.Context, state MigrationState) error

	// DeleteAllData removes every key under the store's root namespace,
	// leaving unrelated backend keys untouched.
	DeleteAllData(ctx context.Context) error
}

// FlatStore implements Store over a flat kv.Backend.
type FlatStore struct {
	backend kv.Backend
	logger  *slog.Logger
}

var _ Store = (*FlatStore)(nil)

// NewFlatStore wraps a backend in the full Store contract.
func NewFlatStore(backend kv.Backend) *FlatStore {
	logger := slog.Default().With("component", "cryptostore")
	logger.Info("crypto store initialized")
	return &FlatStore{backend: backend, logger: logger}
}

// RunBatch opens a batch, passes it to fn, then waits for every grouped
// operation to finish.
func (s *FlatStore) RunBatch(ctx context.Context, fn func(b *Batch) error) error {
	b := NewBatch()
	fnErr := fn(b)
	waitErr := b.Wait(ctx)
	if fnErr != nil {
		return fnErr
	}
	return waitErr
}

// GetAccount delivers the stored account pickle, or "" when absent.
func (s *FlatStore) GetAccount(ctx context.Context, b *Batch, fn func(pickle string)) {
	b.Execute(func() error {
		pickle, _, err := getJSON[string](ctx, s.backend, accountKey)
		if err != nil {
			return err
		}
		fn(pickle)
		return nil
	})
}

// PutAccount stores the account pickle, overwriting any previous one.
func (s *FlatStore) PutAccount(ctx context.Context, b *Batch, pickle string) {
	b.Execute(func() error {
		return putJSON(ctx, s.backend, accountKey, pickle)
	})
}

// GetCrossSigningKeys delivers the stored cross-signing blob, or nil.
func (s *FlatStore) GetCrossSigningKeys(ctx context.Context, b *Batch, fn func(data json.RawMessage)) {
	s.getBlob(ctx, b, crossSigningKeysKey, fn)
}

// PutCrossSigningKeys stores the cross-signing blob.
func (s *FlatStore) PutCrossSigningKeys(ctx context.Context, b *Batch, data json.RawMessage) {
	s.putBlob(ctx, b, crossSigningKeysKey, data)
}

// GetSecretStoreKey delivers the private key stored for keyType, or nil.
func (s *FlatStore) GetSecretStoreKey(ctx context.Context, b *Batch, keyType string, fn func(data json.RawMessage)) {
	s.getBlob(ctx, b, secretStoreKeyKey(keyType), fn)
}

// PutSecretStoreKey stores the private key for keyType.
func (s *FlatStore) PutSecretStoreKey(ctx context.Context, b *Batch, keyType string, data json.RawMessage) {
	s.putBlob(ctx, b, secretStoreKeyKey(keyType), data)
}

// GetDeviceData delivers the device data blob, or nil when absent.
func (s *FlatStore) GetDeviceData(ctx context.Context, b *Batch, fn func(data json.RawMessage)) {
	s.getBlob(ctx, b, deviceDataKey, fn)
}

// PutDeviceData stores the device data blob.
func (s *FlatStore) PutDeviceData(ctx context.Context, b *Batch, data json.RawMessage) {
	s.putBlob(ctx, b, deviceDataKey, data)
}

func (s *FlatStore) getBlob(ctx context.Context, b *Batch, key string, fn func(json.RawMessage)) {
	b.Execute(func() error {
		data, _, err := getJSON[json.RawMessage](ctx, s.backend, key)
		if err != nil {
			return err
		}
		fn(data)
		return nil
	})
}

func (s *FlatStore) putBlob(ctx context.Context, b *Batch, key string, data json.RawMessage) {
	b.Execute(func() error {
		return putJSON(ctx, s.backend, key, data)
	})
}

// PutRoomEncryption stores the encryption configuration for a room.
func (s *FlatStore) PutRoomEncryption(ctx context.Context, b *Batch, roomID id.RoomID, content *event.EncryptionEventContent) {
	b.Execute(func() error {
		return putJSON(ctx, s.backend, roomKey(roomID), content)
	})
}

// ForEachRoomEncryption delivers every stored room configuration one at
// a time, in unspecified order, followed by one terminal fn("", nil).
func (s *FlatStore) ForEachRoomEncryption(ctx context.Context, b *Batch, fn func(roomID id.RoomID, content *event.EncryptionEventContent)) {
	b.Execute(func() error {
		keys, err := s.keysWithPrefix(ctx, roomTag+keySeparator)
		if err != nil {
			return err
		}
		for _, key := range keys {
			roomID, err := splitSingleKey(key, roomTag)
			if err != nil {
				return err
			}
			content, found, err := getJSON[*event.EncryptionEventContent](ctx, s.backend, key)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			fn(id.RoomID(roomID), content)
		}
		fn("", nil)
		return nil
	})
}

// GetMigrationState reports migration progress; an absent key means
// migration has not started.
func (s *FlatStore) GetMigrationState(ctx context.Context) (MigrationState, error) {
	state, _, err := getJSON[MigrationState](ctx, s.backend, migrationStateKey)
	if err != nil {
		return MigrationNotStarted, err
	}
	return state, nil
}

// SetMigrationState records migration progress.
func (s *FlatStore) SetMigrationState(ctx context.Context, state MigrationState) error {
	return putJSON(ctx, s.backend, migrationStateKey, state)
}

// keysWithPrefix lists the full namespace once and filters by prefix.
// The backend has no range queries, so this scan is the only way to
// enumerate an entity kind.
func (s *FlatStore) keysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	all, err := s.backend.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// ABOUTME: Entity types stored by the crypto store
// ABOUTME: Olm/Megolm sessions, key requests, problems, shared history, migration state

package cryptostore

import (
	"go.mau.fi/util/jsontime"
	"maunium.net/go/mautrix/id"
)

// OlmSession is a pickled Olm session plus bookkeeping metadata. The
// pickle format is opaque to this layer.
type OlmSession struct {
	Pickled      string             `json:"pickled"`
	LastReceived jsontime.UnixMilli `json:"last_received,omitempty"`
}

// MegolmSession is a pickled inbound Megolm group session.
type MegolmSession struct {
	RoomID           id.RoomID         `json:"room_id"`
	Pickled          string            `json:"pickled"`
	KeysClaimed      map[string]string `json:"keys_claimed,omitempty"`
	ForwardingChains []string          `json:"forwarding_curve25519_key_chain,omitempty"`
	SharedHistory    bool              `json:"shared_history,omitempty"`
}

// SessionRef identifies one session by its key components. It is the
// composite used both in storage keys and in the backup membership set.
type SessionRef struct {
	SenderKey id.SenderKey `json:"sender_key"`
	SessionID id.SessionID `json:"session_id"`
}

// SessionEntry pairs a session with its identifying components, as
// returned by batch export.
type SessionEntry struct {
	Ref     SessionRef
	Session *OlmSession
}

// GroupSessionEntry pairs a group session with its identifying
// components and its backup-membership flag.
type GroupSessionEntry struct {
	Ref         SessionRef
	Session     *MegolmSession
	NeedsBackup bool
}

// BackupEntry is one result of GetSessionsNeedingBackup: a membership
// entry joined with its live group-session data.
type BackupEntry struct {
	Ref     SessionRef
	Session *MegolmSession
}

// KeyRequestState tracks the send lifecycle of an outgoing key request.
type KeyRequestState int

const (
	KeyRequestUnsent KeyRequestState = iota
	KeyRequestSent
	KeyRequestCancellationPending
	KeyRequestCancellationPendingAndWillResend
)

// RequestBody identifies the room key an outgoing request asks for.
type RequestBody struct {
	Algorithm id.Algorithm `json:"algorithm"`
	RoomID    id.RoomID    `json:"room_id"`
	SenderKey id.SenderKey `json:"sender_key"`
	SessionID id.SessionID `json:"session_id"`
}

// DeviceRef identifies one device of one user.
type DeviceRef struct {
	UserID   id.UserID   `json:"user_id"`
	DeviceID id.DeviceID `json:"device_id"`
}

// OutgoingKeyRequest is a pending room-key request to other devices.
type OutgoingKeyRequest struct {
	RequestID         string          `json:"request_id"`
	RequestBody       RequestBody     `json:"request_body"`
	Recipients        []DeviceRef     `json:"recipients"`
	State             KeyRequestState `json:"state"`
	CancellationTxnID string          `json:"cancellation_txn_id,omitempty"`
}

// SessionProblem is one entry in a device's time-ordered problem log.
type SessionProblem struct {
	Type  string             `json:"type"`
	Fixed bool               `json:"fixed"`
	Time  jsontime.UnixMilli `json:"time"`
}

// ParkedSharedHistory is a shared-history key received before its room
// was known, parked until the room's timeline catches up.
type ParkedSharedHistory struct {
	SenderID         id.UserID         `json:"sender_id"`
	SenderKey        id.SenderKey      `json:"sender_key"`
	SessionID        id.SessionID      `json:"session_id"`
	SessionKey       string            `json:"session_key"`
	KeysClaimed      map[string]string `json:"keys_claimed,omitempty"`
	ForwardingChains []string          `json:"forwarding_curve25519_key_chain,omitempty"`
}

// MigrationState records how far a store migration has progressed.
type MigrationState int

const (
	MigrationNotStarted MigrationState = iota
	MigrationInitialDataDone
	MigrationOlmSessionsDone
	MigrationMegolmSessionsDone
	MigrationRoomSettingsDone
)

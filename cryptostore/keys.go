// ABOUTME: Key codec mapping entity kinds and identifier components to flat storage keys
// ABOUTME: Percent-escapes components so the separator can appear inside identifiers

package cryptostore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"maunium.net/go/mautrix/id"
)

// ErrMalformedKey is returned when a stored key cannot be decoded back
// into its identifier components.
var ErrMalformedKey = errors.New("malformed storage key")

// rootPrefix namespaces every key this store writes. DeleteAllData
// removes exactly the keys carrying this prefix.
const rootPrefix = "crypto."

const keySeparator = "/"

// Singleton keys.
const (
	accountKey               = rootPrefix + "account"
	deviceDataKey            = rootPrefix + "device_data"
	crossSigningKeysKey      = rootPrefix + "cross_signing_keys"
	notifiedErrorDevicesKey  = rootPrefix + "notified_error_devices"
	sessionsNeedingBackupKey = rootPrefix + "sessions_needing_backup"
	migrationStateKey        = rootPrefix + "migration_state"
)

// Keyed entity tags. A full key is <tag>/<escaped component>/...
const (
	sessionTag             = rootPrefix + "sessions"
	groupSessionTag        = rootPrefix + "inbound_group_sessions"
	withheldTag            = rootPrefix + "inbound_group_sessions_withheld"
	roomTag                = rootPrefix + "rooms"
	secretStoreKeyTag      = rootPrefix + "secret_store_keys"
	keyRequestTag          = rootPrefix + "outgoing_key_requests"
	sessionProblemTag      = rootPrefix + "session_problems"
	sharedHistoryTag       = rootPrefix + "shared_history_sessions"
	parkedSharedHistoryTag = rootPrefix + "parked_shared_history"
)

// escapeComponent makes an identifier component safe to embed in a key.
// The separator and the escape character itself are always encoded, so
// decoding by splitting on the separator is unambiguous.
func escapeComponent(s string) string {
	return url.PathEscape(s)
}

func unescapeComponent(s string) (string, error) {
	out, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return out, nil
}

// encodeKey builds <tag>/<escaped c1>/<escaped c2>/...
func encodeKey(tag string, components ...string) string {
	parts := make([]string, 0, len(components)+1)
	parts = append(parts, tag)
	for _, c := range components {
		parts = append(parts, escapeComponent(c))
	}
	return strings.Join(parts, keySeparator)
}

// encodeRef builds the escaped <senderKey>/<sessionID> composite. It is
// shared between session storage keys and the backup membership set so
// both sides agree on one encoding.
func encodeRef(ref SessionRef) string {
	return escapeComponent(string(ref.SenderKey)) + keySeparator + escapeComponent(string(ref.SessionID))
}

// decodeRef reverses encodeRef.
func decodeRef(s string) (SessionRef, error) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 2 {
		return SessionRef{}, fmt.Errorf("%w: %q is not a sender-key/session-id pair", ErrMalformedKey, s)
	}
	senderKey, err := unescapeComponent(parts[0])
	if err != nil {
		return SessionRef{}, err
	}
	sessionID, err := unescapeComponent(parts[1])
	if err != nil {
		return SessionRef{}, err
	}
	return SessionRef{SenderKey: id.SenderKey(senderKey), SessionID: id.SessionID(sessionID)}, nil
}

func sessionKey(ref SessionRef) string {
	return sessionTag + keySeparator + encodeRef(ref)
}

func sessionPrefix(senderKey id.SenderKey) string {
	return encodeKey(sessionTag, string(senderKey)) + keySeparator
}

func groupSessionKey(ref SessionRef) string {
	return groupSessionTag + keySeparator + encodeRef(ref)
}

func withheldKey(ref SessionRef) string {
	return withheldTag + keySeparator + encodeRef(ref)
}

func roomKey(roomID id.RoomID) string {
	return encodeKey(roomTag, string(roomID))
}

func secretStoreKeyKey(keyType string) string {
	return encodeKey(secretStoreKeyTag, keyType)
}

func keyRequestKey(requestID string) string {
	return encodeKey(keyRequestTag, requestID)
}

func sessionProblemKey(senderKey id.SenderKey) string {
	return encodeKey(sessionProblemTag, string(senderKey))
}

func sharedHistoryKey(roomID id.RoomID) string {
	return encodeKey(sharedHistoryTag, string(roomID))
}

func parkedSharedHistoryKey(roomID id.RoomID) string {
	return encodeKey(parkedSharedHistoryTag, string(roomID))
}

// splitRefKey decodes a full storage key written under tag back into
// its SessionRef. The key must carry the tag prefix.
func splitRefKey(key, tag string) (SessionRef, error) {
	suffix, ok := strings.CutPrefix(key, tag+keySeparator)
	if !ok {
		return SessionRef{}, fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedKey, key, tag)
	}
	return decodeRef(suffix)
}

// splitSingleKey decodes a one-component key written under tag.
func splitSingleKey(key, tag string) (string, error) {
	suffix, ok := strings.CutPrefix(key, tag+keySeparator)
	if !ok {
		return "", fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedKey, key, tag)
	}
	if strings.Contains(suffix, keySeparator) {
		return "", fmt.Errorf("%w: %q has extra components", ErrMalformedKey, key)
	}
	return unescapeComponent(suffix)
}

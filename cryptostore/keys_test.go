package cryptostore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/id"
)

func TestEncodeRef_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ref  SessionRef
	}{
		{
			name: "plain components",
			ref:  SessionRef{SenderKey: "adevicekey", SessionID: "sess1"},
		},
		{
			name: "separator inside components",
			ref:  SessionRef{SenderKey: "sender/with/slashes", SessionID: "id/with/slash"},
		},
		{
			name: "escape character inside components",
			ref:  SessionRef{SenderKey: "50%25", SessionID: "%2Fnot-a-slash"},
		},
		{
			name: "unicode components",
			ref:  SessionRef{SenderKey: "ключ", SessionID: "日本語セッション"},
		},
		{
			name: "base64-ish curve25519 key",
			ref:  SessionRef{SenderKey: "JGLn/yafz74HB2AbPLYJWIVGnlAlsJZkB0tnjLgsPHU", SessionID: "sid+/="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRef(encodeRef(tt.ref))
			require.NoError(t, err)
			assert.Equal(t, tt.ref, got)
		})
	}
}

func TestSplitRefKey_RoundTrip(t *testing.T) {
	ref := SessionRef{SenderKey: "sender/key", SessionID: "sess/id"}

	got, err := splitRefKey(sessionKey(ref), sessionTag)
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	got, err = splitRefKey(groupSessionKey(ref), groupSessionTag)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestSplitRefKey_Malformed(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "wrong prefix", key: "other.sessions/a/b"},
		{name: "too few components", key: sessionTag + "/only-one"},
		{name: "too many components", key: sessionTag + "/a/b/c"},
		{name: "invalid escape", key: sessionTag + "/a%zz/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := splitRefKey(tt.key, sessionTag)
			assert.ErrorIs(t, err, ErrMalformedKey)
		})
	}
}

func TestSessionPrefix_Isolation(t *testing.T) {
	// A device whose key is a textual prefix of another's must not
	// capture the other device's sessions.
	short := sessionPrefix("alice")
	long := sessionKey(SessionRef{SenderKey: "alicebob", SessionID: "s1"})
	assert.False(t, strings.HasPrefix(long, short))

	own := sessionKey(SessionRef{SenderKey: "alice", SessionID: "s1"})
	assert.True(t, strings.HasPrefix(own, short))
}

func TestSplitSingleKey_RoundTrip(t *testing.T) {
	roomID := id.RoomID("!room/with/slash:example.org")
	got, err := splitSingleKey(roomKey(roomID), roomTag)
	require.NoError(t, err)
	assert.Equal(t, string(roomID), got)
}

func TestSingletonKeys_UnderRootNamespace(t *testing.T) {
	keys := []string{
		accountKey, deviceDataKey, crossSigningKeysKey,
		notifiedErrorDevicesKey, sessionsNeedingBackupKey, migrationStateKey,
	}
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, rootPrefix), k)
	}
}

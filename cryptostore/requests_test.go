package cryptostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/id"
)

func testRequestBody(sessionID id.SessionID) RequestBody {
	return RequestBody{
		Algorithm: id.AlgorithmMegolmV1,
		RoomID:    "!room:example.org",
		SenderKey: "sender-key",
		SessionID: sessionID,
	}
}

func TestKeyRequests_CreateOrFetch(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess1"),
		Recipients:  []DeviceRef{{UserID: "@alice:example.org", DeviceID: "DEV1"}},
		State:       KeyRequestUnsent,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.RequestID, "a request ID is assigned")

	// Same body fetches the existing request instead of creating.
	fetched, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess1"),
		State:       KeyRequestUnsent,
	})
	require.NoError(t, err)
	assert.Equal(t, created.RequestID, fetched.RequestID)

	// A different body creates a second request.
	other, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess2"),
		State:       KeyRequestUnsent,
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.RequestID, other.RequestID)
}

func TestKeyRequests_GetByBody(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess1"),
		State:       KeyRequestSent,
	})
	require.NoError(t, err)

	got, err := store.GetKeyRequest(ctx, testRequestBody("sess1"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, KeyRequestSent, got.State)

	missing, err := store.GetKeyRequest(ctx, testRequestBody("unknown"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestKeyRequests_QueriesByState(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	for i, state := range []KeyRequestState{KeyRequestUnsent, KeyRequestSent, KeyRequestSent} {
		_, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
			RequestBody: testRequestBody(id.SessionID(string(rune('a' + i)))),
			State:       state,
		})
		require.NoError(t, err)
	}

	first, err := store.GetKeyRequestByState(ctx, KeyRequestSent)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, KeyRequestSent, first.State)

	none, err := store.GetKeyRequestByState(ctx, KeyRequestCancellationPending)
	require.NoError(t, err)
	assert.Nil(t, none)

	sent, err := store.GetAllKeyRequestsByState(ctx, KeyRequestSent)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}

func TestKeyRequests_QueryByTarget(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	alice := DeviceRef{UserID: "@alice:example.org", DeviceID: "DEV1"}
	bob := DeviceRef{UserID: "@bob:example.org", DeviceID: "DEV2"}

	_, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess1"),
		Recipients:  []DeviceRef{alice, bob},
		State:       KeyRequestSent,
	})
	require.NoError(t, err)
	_, err = store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess2"),
		Recipients:  []DeviceRef{bob},
		State:       KeyRequestSent,
	})
	require.NoError(t, err)

	forAlice, err := store.GetKeyRequestsByTarget(ctx, alice, KeyRequestSent)
	require.NoError(t, err)
	assert.Len(t, forAlice, 1)

	forBob, err := store.GetKeyRequestsByTarget(ctx, bob, KeyRequestSent)
	require.NoError(t, err)
	assert.Len(t, forBob, 2)

	wrongState, err := store.GetKeyRequestsByTarget(ctx, bob, KeyRequestUnsent)
	require.NoError(t, err)
	assert.Empty(t, wrongState)
}

func TestKeyRequests_UpdateExpectedState(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess1"),
		State:       KeyRequestUnsent,
	})
	require.NoError(t, err)

	// Mismatched expected state is a no-op, not an error.
	updated, err := store.UpdateKeyRequest(ctx, created.RequestID, KeyRequestSent, func(r *OutgoingKeyRequest) {
		r.State = KeyRequestCancellationPending
	})
	require.NoError(t, err)
	assert.Nil(t, updated)

	updated, err = store.UpdateKeyRequest(ctx, created.RequestID, KeyRequestUnsent, func(r *OutgoingKeyRequest) {
		r.State = KeyRequestSent
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, KeyRequestSent, updated.State)

	stored, err := store.GetKeyRequest(ctx, testRequestBody("sess1"))
	require.NoError(t, err)
	assert.Equal(t, KeyRequestSent, stored.State)
}

func TestKeyRequests_DeleteExpectedState(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := store.CreateOrFetchKeyRequest(ctx, &OutgoingKeyRequest{
		RequestBody: testRequestBody("sess1"),
		State:       KeyRequestSent,
	})
	require.NoError(t, err)

	// Wrong expected state: no-op.
	deleted, err := store.DeleteKeyRequest(ctx, created.RequestID, KeyRequestUnsent)
	require.NoError(t, err)
	assert.Nil(t, deleted)
	still, err := store.GetKeyRequest(ctx, testRequestBody("sess1"))
	require.NoError(t, err)
	assert.NotNil(t, still)

	deleted, err = store.DeleteKeyRequest(ctx, created.RequestID, KeyRequestSent)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	gone, err := store.GetKeyRequest(ctx, testRequestBody("sess1"))
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Deleting an absent request is also a no-op.
	deleted, err = store.DeleteKeyRequest(ctx, "never-existed", KeyRequestSent)
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

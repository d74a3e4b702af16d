// ABOUTME: Outgoing room-key request CRUD and unindexed query scans
// ABOUTME: Body/state/target lookups walk every stored request applying a predicate

package cryptostore

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// CreateOrFetchKeyRequest returns the existing request for req's body
// if one is stored, otherwise stores req and returns it. A req with no
// RequestID is assigned one.
func (s *FlatStore) CreateOrFetchKeyRequest(ctx context.Context, req *OutgoingKeyRequest) (*OutgoingKeyRequest, error) {
	existing, err := s.GetKeyRequest(ctx, req.RequestBody)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Debug("found existing key request", "request_id", existing.RequestID)
		return existing, nil
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := putJSON(ctx, s.backend, keyRequestKey(req.RequestID), req); err != nil {
		return nil, err
	}
	return req, nil
}

// GetKeyRequest returns the first stored request whose body matches, or
// nil when none does.
func (s *FlatStore) GetKeyRequest(ctx context.Context, body RequestBody) (*OutgoingKeyRequest, error) {
	return s.findKeyRequest(ctx, func(req *OutgoingKeyRequest) bool {
		return req.RequestBody == body
	})
}

// GetKeyRequestByState returns the first stored request in any of the
// given states, or nil when none is.
func (s *FlatStore) GetKeyRequestByState(ctx context.Context, states ...KeyRequestState) (*OutgoingKeyRequest, error) {
	return s.findKeyRequest(ctx, func(req *OutgoingKeyRequest) bool {
		return slices.Contains(states, req.State)
	})
}

// GetAllKeyRequestsByState returns every stored request in the given
// state.
func (s *FlatStore) GetAllKeyRequestsByState(ctx context.Context, state KeyRequestState) ([]*OutgoingKeyRequest, error) {
	var out []*OutgoingKeyRequest
	err := s.forEachKeyRequest(ctx, func(req *OutgoingKeyRequest) bool {
		if req.State == state {
			out = append(out, req)
		}
		return false
	})
	return out, err
}

// GetKeyRequestsByTarget returns every stored request in one of the
// given states that names target among its recipients.
func (s *FlatStore) GetKeyRequestsByTarget(ctx context.Context, target DeviceRef, states ...KeyRequestState) ([]*OutgoingKeyRequest, error) {
	var out []*OutgoingKeyRequest
	err := s.forEachKeyRequest(ctx, func(req *OutgoingKeyRequest) bool {
		if slices.Contains(states, req.State) && slices.Contains(req.Recipients, target) {
			out = append(out, req)
		}
		return false
	})
	return out, err
}

// UpdateKeyRequest applies update to the stored request and persists
// it, provided the stored state matches expectedState. A missing
// request or a state mismatch is a no-op returning (nil, nil).
func (s *FlatStore) UpdateKeyRequest(ctx context.Context, requestID string, expectedState KeyRequestState, update func(*OutgoingKeyRequest)) (*OutgoingKeyRequest, error) {
	key := keyRequestKey(requestID)
	req, found, err := getJSON[*OutgoingKeyRequest](ctx, s.backend, key)
	if err != nil {
		return nil, err
	}
	if !found || req.State != expectedState {
		return nil, nil
	}
	update(req)
	if err := putJSON(ctx, s.backend, key, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteKeyRequest removes the stored request, provided its state
// matches expectedState, and returns it. A missing request or a state
// mismatch is a no-op returning (nil, nil).
func (s *FlatStore) DeleteKeyRequest(ctx context.Context, requestID string, expectedState KeyRequestState) (*OutgoingKeyRequest, error) {
	key := keyRequestKey(requestID)
	req, found, err := getJSON[*OutgoingKeyRequest](ctx, s.backend, key)
	if err != nil {
		return nil, err
	}
	if !found || req.State != expectedState {
		return nil, nil
	}
	if err := s.backend.Remove(ctx, key); err != nil {
		return nil, err
	}
	return req, nil
}

// findKeyRequest returns the first stored request the predicate
// accepts. There is no index over requests, so every query is a linear
// scan.
func (s *FlatStore) findKeyRequest(ctx context.Context, match func(*OutgoingKeyRequest) bool) (*OutgoingKeyRequest, error) {
	var found *OutgoingKeyRequest
	err := s.forEachKeyRequest(ctx, func(req *OutgoingKeyRequest) bool {
		if match(req) {
			found = req
			return true
		}
		return false
	})
	return found, err
}

// forEachKeyRequest calls visit with every stored request until visit
// returns true.
func (s *FlatStore) forEachKeyRequest(ctx context.Context, visit func(*OutgoingKeyRequest) bool) error {
	keys, err := s.keysWithPrefix(ctx, keyRequestTag+keySeparator)
	if err != nil {
		return err
	}
	for _, key := range keys {
		req, found, err := getJSON[*OutgoingKeyRequest](ctx, s.backend, key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if visit(req) {
			return nil
		}
	}
	return nil
}

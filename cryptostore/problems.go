// ABOUTME: Session problem logs and notified-error-device tracking
// ABOUTME: Problem lookups propagate a later fix to earlier unresolved entries

package cryptostore

import (
	"context"
	"slices"
	"time"

	"go.mau.fi/util/jsontime"
	"maunium.net/go/mautrix/id"
)

// AddSessionProblem appends a problem entry to the device's log,
// stamped with the current time, and keeps the log time-sorted.
func (s *FlatStore) AddSessionProblem(ctx context.Context, senderKey id.SenderKey, problemType string, fixed bool) error {
	key := sessionProblemKey(senderKey)
	problems, _, err := getJSON[[]*SessionProblem](ctx, s.backend, key)
	if err != nil {
		return err
	}
	problems = append(problems, &SessionProblem{
		Type:  problemType,
		Fixed: fixed,
		Time:  jsontime.UM(time.Now()),
	})
	slices.SortStableFunc(problems, func(a, b *SessionProblem) int {
		return a.Time.Compare(b.Time.Time)
	})
	s.logger.Debug("recorded session problem",
		"sender_key", senderKey, "type", problemType, "fixed", fixed)
	return putJSON(ctx, s.backend, key, problems)
}

// GetSessionProblem reports the problem affecting messages received at
// timestamp, or nil when none applies. A problem recorded after the
// timestamp borrows the fixed flag of the most recent entry, so marking
// a later problem fixed resolves earlier lookups too.
func (s *FlatStore) GetSessionProblem(ctx context.Context, senderKey id.SenderKey, timestamp jsontime.UnixMilli) (*SessionProblem, error) {
	problems, _, err := getJSON[[]*SessionProblem](ctx, s.backend, sessionProblemKey(senderKey))
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, nil
	}
	last := problems[len(problems)-1]
	for _, problem := range problems {
		if problem.Time.After(timestamp.Time) {
			return &SessionProblem{Type: problem.Type, Fixed: last.Fixed, Time: problem.Time}, nil
		}
	}
	if !last.Time.After(timestamp.Time) && !last.Fixed {
		return last, nil
	}
	return nil, nil
}

// FilterUnnotifiedErrorDevices returns the subset of devices the user
// has not yet been notified about, and marks every given device as
// notified.
func (s *FlatStore) FilterUnnotifiedErrorDevices(ctx context.Context, devices []DeviceRef) ([]DeviceRef, error) {
	notified, _, err := getJSON[map[id.UserID]map[id.DeviceID]bool](ctx, s.backend, notifiedErrorDevicesKey)
	if err != nil {
		return nil, err
	}
	if notified == nil {
		notified = make(map[id.UserID]map[id.DeviceID]bool)
	}

	var unnotified []DeviceRef
	for _, dev := range devices {
		if notified[dev.UserID][dev.DeviceID] {
			continue
		}
		unnotified = append(unnotified, dev)
		if notified[dev.UserID] == nil {
			notified[dev.UserID] = make(map[id.DeviceID]bool)
		}
		notified[dev.UserID][dev.DeviceID] = true
	}

	if err := putJSON(ctx, s.backend, notifiedErrorDevicesKey, notified); err != nil {
		return nil, err
	}
	return unnotified, nil
}

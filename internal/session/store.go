// Package session persists widget selections so a client that reconnects
// picks up where it left off.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/selector"
)

// DefaultTTL bounds how long an idle snapshot is kept.
const DefaultTTL = 30 * time.Minute

// ErrInvalidID is returned for a blank session id.
var ErrInvalidID = errors.New("session: id is required")

// Snapshot is the persisted part of one widget session.
type Snapshot struct {
	SessionID  string              `json:"session_id"`
	ProviderID string              `json:"provider_id"`
	Date       *calendar.Date      `json:"date,omitempty"`
	Time       *calendar.TimeOfDay `json:"time,omitempty"`
	Name       string              `json:"name,omitempty"`
	Phone      string              `json:"phone,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// FromState builds a snapshot of a selector state.
func FromState(id, providerID string, st selector.State, now time.Time) Snapshot {
	return Snapshot{
		SessionID:  id,
		ProviderID: providerID,
		Date:       st.Date,
		Time:       st.Time,
		Name:       st.Name,
		Phone:      st.Phone,
		UpdatedAt:  now.UTC(),
	}
}

// State converts the snapshot back into a selector state.
func (s Snapshot) State() selector.State {
	return selector.State{Date: s.Date, Time: s.Time, Name: s.Name, Phone: s.Phone}
}

// Store saves and loads snapshots. Load returns nil, nil for an unknown id.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	return nil
}

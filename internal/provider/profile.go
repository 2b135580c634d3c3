// Package provider decodes the provider identity and backend credentials that
// a booking page embeds as inline data.
package provider

import (
	"encoding/json"
	"strings"
)

const fallbackName = "This barber"

// Profile identifies the provider whose calendar is being booked.
type Profile struct {
	ProviderID string `json:"barberId"`
	Name       string `json:"name,omitempty"`
	Profession string `json:"profession,omitempty"`
}

// UnmarshalJSON accepts barberId as either a string or a number.
func (p *Profile) UnmarshalJSON(b []byte) error {
	var raw struct {
		ProviderID json.RawMessage `json:"barberId"`
		Name       string          `json:"name"`
		Profession string          `json:"profession"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	id := strings.TrimSpace(string(raw.ProviderID))
	var s string
	if err := json.Unmarshal(raw.ProviderID, &s); err == nil {
		id = s
	} else if id == "null" {
		id = ""
	}

	*p = Profile{
		ProviderID: strings.TrimSpace(id),
		Name:       raw.Name,
		Profession: raw.Profession,
	}
	return nil
}

// DisplayName is used in client-facing notices.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return fallbackName
}

// HasID reports whether a provider id is configured.
func (p Profile) HasID() bool {
	return p.ProviderID != ""
}

// Backend holds the third-party backend client credentials some pages carry.
type Backend struct {
	URL string `json:"url,omitempty"`
	Key string `json:"key,omitempty"`
}

// Configured reports whether both URL and key are present.
func (b Backend) Configured() bool {
	return strings.TrimSpace(b.URL) != "" && strings.TrimSpace(b.Key) != ""
}

// ParseProfile decodes inline provider data. Empty or malformed input yields
// the zero Profile; the page keeps working and slot loading fails later
// through the normal error path.
func ParseProfile(raw string) Profile {
	var p Profile
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return Profile{}
	}
	return p
}

// ParseBackend decodes inline backend credentials with the same leniency as
// ParseProfile.
func ParseBackend(raw string) Backend {
	var b Backend
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &b); err != nil {
		return Backend{}
	}
	return b
}

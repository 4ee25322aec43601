// Package domain contains core concepts of the chat session state.
// This file defines Participant entities and roster invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant identifies a chat member. Identity is the ID; the display
// fields are denormalized copies refreshed by later events.
type Participant struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
}

// MergeParticipants folds incoming members into an existing roster.
// The roster stays unique by ID and order-preserving: known members keep
// their position but refresh display fields, unknown members are appended.
func MergeParticipants(existing, incoming []Participant) []Participant {
	merged := make([]Participant, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, p := range merged {
		index[p.ID] = i
	}

	for _, p := range incoming {
		if p.ID == "" {
			continue
		}
		if i, ok := index[p.ID]; ok {
			if p.DisplayName != "" {
				merged[i].DisplayName = p.DisplayName
			}
			if p.AvatarRef != "" {
				merged[i].AvatarRef = p.AvatarRef
			}
			continue
		}
		index[p.ID] = len(merged)
		merged = append(merged, p)
	}
	return merged
}

// ClampDirect enforces the two-member invariant of a direct session.
// When a merged roster exceeds two members it keeps the current user and the
// counterpart already known from the existing roster; if no counterpart was
// known, the first incoming non-self member wins. A stale or malformed
// roster payload never promotes a direct session to a group.
func ClampDirect(existing, merged []Participant, selfID string) []Participant {
	if len(merged) <= 2 {
		return merged
	}
	if selfID == "" {
		// Self-context unknown: keep the first two, nothing better to do.
		return merged[:2:2]
	}

	var self, counterpart *Participant
	for i := range merged {
		if merged[i].ID == selfID {
			self = &merged[i]
			break
		}
	}
	for _, prev := range existing {
		if prev.ID == selfID {
			continue
		}
		for i := range merged {
			if merged[i].ID == prev.ID {
				counterpart = &merged[i]
				break
			}
		}
		if counterpart != nil {
			break
		}
	}
	if counterpart == nil {
		for i := range merged {
			if merged[i].ID != selfID {
				counterpart = &merged[i]
				break
			}
		}
	}

	clamped := make([]Participant, 0, 2)
	if self != nil {
		clamped = append(clamped, *self)
	}
	if counterpart != nil {
		clamped = append(clamped, *counterpart)
	}
	return clamped
}

package domain

// ReactionGroup is the set of users who reacted to a message with one exact
// emoji string. Two visually similar emoji with different codepoints (for
// example skin-tone modifiers) are distinct groups; variants are never
// folded together.
type ReactionGroup struct {
	Emoji       string        `json:"emoji"`
	Count       int           `json:"count"`
	Users       []Participant `json:"users"`
	SelfReacted bool          `json:"selfReacted"`
}

// Clone returns a copy whose Users slice is independent of the original.
func (g ReactionGroup) Clone() ReactionGroup {
	out := g
	if g.Users != nil {
		out.Users = append([]Participant(nil), g.Users...)
	}
	return out
}

// WithSelf recomputes the viewer-relative flag for the given user id.
// An empty id means self-context is unknown and the flag stays false.
func (g ReactionGroup) WithSelf(selfID string) ReactionGroup {
	g.SelfReacted = false
	if selfID == "" {
		return g
	}
	for _, u := range g.Users {
		if u.ID == selfID {
			g.SelfReacted = true
			break
		}
	}
	return g
}

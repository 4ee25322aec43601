// Package convid derives and classifies conversation identifiers.
// Two-party ids are deterministic and order-independent so that both peers
// compute the same id without coordination; group ids are random.
package convid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chat-sync/domain"
	"chat-sync/errors"
)

const (
	directPrefix = "chat:pair:"
	groupPrefix  = "chat:group:"
)

// DirectID returns the canonical id of the two-party conversation between a
// and b. Both ids are trimmed and case-folded, then sorted, so
// DirectID(a, b) == DirectID(b, a) for every non-empty pair. Only a pair
// that normalizes to two empty tokens is rejected.
func DirectID(a, b string) (string, error) {
	a, b = normalize(a), normalize(b)
	if a == "" && b == "" {
		return "", errors.ErrEmptyPeer
	}
	if a > b {
		a, b = b, a
	}
	return directPrefix + a + ":" + b, nil
}

// GroupID returns a fresh random identifier for a multi-party conversation.
func GroupID() string {
	return groupPrefix + uuid.NewString()
}

// KindOf classifies an identifier by prefix. It never fails: anything that
// is not a recognized direct or group id is KindUnknown, and unknown-kind
// sessions are treated as uncapped by the store.
func KindOf(id string) domain.SessionKind {
	switch {
	case strings.HasPrefix(id, directPrefix):
		return domain.KindDirect
	case strings.HasPrefix(id, groupPrefix):
		return domain.KindGroup
	default:
		return domain.KindUnknown
	}
}

// ParseDirectID extracts the two normalized participant tokens of a direct
// id. The structure must be exactly prefix plus two non-empty tokens.
func ParseDirectID(id string) (string, string, error) {
	if !strings.HasPrefix(id, directPrefix) {
		return "", "", fmt.Errorf("%w: %q", errors.ErrMalformedConversationID, id)
	}
	rest := strings.TrimPrefix(id, directPrefix)
	parts := strings.Split(rest, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", errors.ErrMalformedConversationID, id)
	}
	return parts[0], parts[1], nil
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

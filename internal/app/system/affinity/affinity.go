// Package affinity decides which workspace a request is scoped to when
// the request does not name one explicitly.
package affinity

import (
	"github.com/quireworks/quire/internal/domain/models"
)

// SelectWorkspace picks the active workspace from the caller's
// membership set, optionally steered by a selection hint (an opaque
// workspace hex id carried by the client).
//
// The hint is untrusted input: it only takes effect when it names a
// workspace the caller actually belongs to, re-validated against the
// membership set on every call. A hint naming anything else is silently
// ignored. Without a usable hint the most recently joined workspace
// wins (a user just invited somewhere new should land there) and ties
// or missing timestamps fall back to the first membership in the
// caller's supplied ordering.
//
// Pure read-only pick; persisting the choice as a new hint is the
// caller's business.
func SelectWorkspace(memberships []models.Membership, hint string) (models.Membership, bool) {
	if len(memberships) == 0 {
		return models.Membership{}, false
	}

	if hint != "" {
		for _, m := range memberships {
			if m.WorkspaceID.Hex() == hint {
				return m, true
			}
		}
	}

	best := memberships[0]
	for _, m := range memberships[1:] {
		if m.CreatedAt.After(best.CreatedAt) {
			best = m
		}
	}
	return best, true
}

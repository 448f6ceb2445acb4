package triage

// Scope restricts a count to a subset of conversations. The zero value
// covers every conversation.
type Scope struct {
	ids      []string
	explicit bool
}

// AllConversations covers every conversation.
func AllConversations() Scope {
	return Scope{}
}

// ConversationIDs restricts the scope to ids. Duplicates and blanks are
// dropped; an empty list yields an empty scope, not an unrestricted one.
func ConversationIDs(ids []string) Scope {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return Scope{ids: unique, explicit: true}
}

// IsAll reports whether the scope is unrestricted.
func (s Scope) IsAll() bool {
	return !s.explicit
}

// IsEmpty reports whether the scope is an explicit empty set.
func (s Scope) IsEmpty() bool {
	return s.explicit && len(s.ids) == 0
}

// IDs returns a copy of the explicit identifiers, or nil for an unrestricted scope.
func (s Scope) IDs() []string {
	if !s.explicit {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Contains reports whether id is in scope.
func (s Scope) Contains(id string) bool {
	if !s.explicit {
		return true
	}
	for _, candidate := range s.ids {
		if candidate == id {
			return true
		}
	}
	return false
}

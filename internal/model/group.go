package model

import "time"

// Group is a shared task space. Admins are always members; Normalize
// restores that invariant after deserialization or remote refresh.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`

	// CreatorID is the founding user, present in both MemberIDs and
	// AdminIDs from creation onward.
	CreatorID string `json:"creator_id"`

	MemberIDs []string `json:"member_ids"`
	AdminIDs  []string `json:"admin_ids"`

	CreatedAt time.Time `json:"created_at"`
}

// Normalize enforces admin ⊆ member and the creator's presence in both
// lists, deduplicating along the way.
func (g *Group) Normalize() {
	members := make(map[string]bool, len(g.MemberIDs))
	var memberIDs []string

	add := func(id string) {
		if id == "" || members[id] {
			return
		}
		members[id] = true
		memberIDs = append(memberIDs, id)
	}

	for _, id := range g.MemberIDs {
		add(id)
	}
	add(g.CreatorID)

	seen := make(map[string]bool, len(g.AdminIDs))
	var adminIDs []string
	for _, id := range append(g.AdminIDs, g.CreatorID) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		add(id)
		adminIDs = append(adminIDs, id)
	}

	g.MemberIDs = memberIDs
	g.AdminIDs = adminIDs
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return containsID(g.MemberIDs, userID)
}

// HasAdmin reports whether userID administers the group.
func (g *Group) HasAdmin(userID string) bool {
	return containsID(g.AdminIDs, userID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

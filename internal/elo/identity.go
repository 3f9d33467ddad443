package elo

import (
	"sort"
	"strings"
)

// MemberSeparator joins member identities inside a member key.
const MemberSeparator = "-"

// MemberKey returns the canonical key of a composition. Empty identities are
// ignored and the rest are sorted so the key does not depend on input order.
func MemberKey(ids ...string) string {
	members := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			members = append(members, id)
		}
	}
	sort.Strings(members)
	return strings.Join(members, MemberSeparator)
}

// Members splits a member key back into its identities.
func Members(key string) []string {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return strings.Split(key, MemberSeparator)
}

// HasMember reports whether id is one of the identities in key.
func HasMember(key, id string) bool {
	for _, m := range Members(key) {
		if m == id {
			return true
		}
	}
	return false
}

// Identity turns a raw user id into mention form ("U1" -> "@U1") so it can
// be compared with parsed participants.
func Identity(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.HasPrefix(userID, "@") {
		return userID
	}
	return "@" + userID
}

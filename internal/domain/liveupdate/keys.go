package liveupdate

// Namespace prefixes every shared cache key derived from conversation
// state, so one prefix invalidation refreshes counts and lists.
const Namespace = "conversations:"

// DetailKey is the cache key of one conversation's detail view.
func DetailKey(conversationID string) string {
	return "conversation:" + conversationID
}

// TabCountsKey is the cache key of the tab counts for an instance; "" is all instances.
func TabCountsKey(instanceID string) string {
	if instanceID == "" {
		return Namespace + "tab-counts"
	}
	return Namespace + "tab-counts:" + instanceID
}

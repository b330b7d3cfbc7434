// Package contest holds the contest model shared by the clist source and the
// reconciler: the identity key used to match contests with calendar events,
// the event description format with its ownership marker, and the
// per-platform filter.
package contest

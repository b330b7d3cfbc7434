// Package reconcile syncs contests into a calendar.
//
// A run has two phases. Clear (optional) deletes every upcoming event whose
// description carries contest.Marker. Sync fetches contests, filters them,
// and inserts an event for each contest whose identity key is not already
// the summary of an upcoming event. Nothing is updated in place, so a
// rescheduled contest keeps its old event until the next clear.
//
// Per-operation failures are collected in a Report instead of stopping the
// run; Report.Err is non-nil whenever anything failed.
package reconcile

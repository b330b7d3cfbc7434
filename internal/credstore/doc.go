// Package credstore holds the OAuth credential lifecycle for the calendar
// adapter: load-or-authenticate, refresh-if-expired and persist, behind a
// Store interface with a SQLite implementation.
package credstore

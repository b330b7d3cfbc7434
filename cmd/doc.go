// Package cmd implements the clistcal command line: sync (the default),
// clear, list, auth and version.
package cmd

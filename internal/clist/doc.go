// Package clist is the contest source: it queries the clist.by API for
// upcoming contests and normalizes them into contest.Contest values.
package clist

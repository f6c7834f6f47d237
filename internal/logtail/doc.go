// Package logtail reads the tail of cartsync's JSON log file for the
// activity pane.
//
// Read keeps a ring buffer of the last maxLines lines so memory stays
// bounded by the request, not by the file size. Tail parses those lines into
// Entry values using the encoder keys from package logging, and Format turns
// an entry into one display line:
//
//	14:03:11 WARN  engine: sync failed line=pho error=kitchen closed
//
// A missing log file is not an error; the pane simply shows nothing yet.
package logtail

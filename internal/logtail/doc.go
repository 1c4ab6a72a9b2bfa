// Package logtail reads the tail of the bridge's own log file.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded no matter how large the file has grown. Lines written by the
// standard log package have their date and time stripped, since the TUI log
// strip only has room for the message.
//
// A missing file is not an error: Read returns nil, nil.
package logtail

// Package history remembers the last few results fetched by the CLI.
//
// Results are keyed by their original URL: fetching the same URL again
// moves it to the front instead of adding a duplicate. At most
// DefaultMaxEntries are kept, most recent first. The file is replaced
// atomically on every write, so a crash never leaves a half-written
// history behind.
package history

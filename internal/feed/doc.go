// Package feed holds the upstream entry model, the recency filter and the
// Atom/RSS fetcher used to pull entries for a topic query.
//
// Entries keep their publication timestamp as the raw upstream string so
// that a malformed value can be counted and skipped per entry instead of
// failing the whole fetch.
package feed

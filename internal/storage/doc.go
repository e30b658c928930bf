// Package storage keeps an append-only history of per-topic run outcomes.
//
// Records are observational: nothing in a run reads them back, so a topic
// is never filtered against what an earlier run already posted.
package storage

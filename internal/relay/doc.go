// Package relay turns fetched feed entries into chat messages for one topic
// at a time and runs a topic list in order.
//
// A run computes its cutoff once, then for every topic: resolves the
// destination, fetches, filters by recency, optionally caps, picks
// per-item or summary mode and delivers through a throttle-aware sender.
// Failures are confined to the topic that produced them.
package relay

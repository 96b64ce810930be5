// Package feed fans resultboard state changes out to channel subscribers.
//
// The main components are:
//
//   - [Feed]: Interface defining the latest view and subscription operations
//   - [MemoryFeed]: Implementation fed by a resultboard Store subscription
//
// Subscribers receive views via channels with non-blocking sends. A slow
// subscriber misses intermediate views rather than blocking the store; the
// next view it does receive is always complete.
package feed

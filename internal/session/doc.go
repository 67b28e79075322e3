// Package session holds the single-user Spotify session for the process.
//
// The Store keeps at most one access token. It starts empty, is filled by a
// successful OAuth callback and is overwritten by every later successful
// callback. Nothing clears it short of a process restart.
//
// Writers and readers are serialized with a sync.RWMutex, so concurrent
// callbacks are last-write-wins and a reader never observes a torn token.
package session

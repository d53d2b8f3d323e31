// Package badger implements conversation.Store on BadgerDB.
//
// Turns are encoded with msgpack and keyed by session id, timestamp and a
// sequence number, so a prefix scan over one session returns its turns in
// chronological order. Open with an empty path for an in-memory store.
package badger

// Package library is the local snapshot of the user's saved albums and liked tracks.
//
// # Snapshots
//
// The cache holds two JSON objects in a [storage.KeyValueStore]: identifier to [models.Track] under the tracks key and
// identifier to [models.Album] under the albums key. Both are read and written whole. Updates merge into the
// existing mapping with the incoming entry winning and never delete keys.
//
// # Update
//
// [Cache.UpdateAll] asks a [Source] for what is new since the last sync, measured against the snapshots as they
// were before the call, and persists the tracks snapshot before the albums snapshot. A failed read leaves the
// snapshot of that entity type untouched.
//
// # Search
//
// [Cache.SearchSongs] is a case-insensitive substring filter over title, artists and album name of cached tracks.
// It never contacts the remote.
package library

// Package models defines the library entities and persistence interfaces for crate.
//
// The package contains two categories of types:
//
// 1. Library entities: plain structs describing remote catalogue data as it is cached locally
//   - [Track] : a single recording with its owning album reference
//   - [Album] : an album with its ordered track listing and genre tags
//   - [SavedTrack] / [SavedAlbum] : library entries stamped with the time they were saved
//
// 2. Persistent entities: database-backed models with lifecycle management
//   - [SyncRun] : a record of one playlist sync operation and its outcome
//
// Persistent entities implement the [Model] interface. The [Repository] interface defines standard CRUD operations
// for database access.
package models

// Package tasks is the reconciliation and playlist-sync engine.
//
// # Stages
//
// Every sync runs the same pipeline, one stage at a time:
//
//  1. [Reconciler.RecentlyAdded] merges newly saved albums and newly liked tracks into one ordered sequence, albums
//     contiguous and in track-number order, most recently touched album first.
//  2. [Diff] splits that sequence against the playlist's current identifiers into a head segment of tracks never
//     synced and a backfill segment of older tracks that went missing.
//  3. [Applier.AddTracks] pushes a segment in pages of [services.WriteBatch], deduplicated, keeping inserted pages
//     contiguous at the requested position.
//  4. [Trimmer.Trim] cuts the playlist back to a length without splitting an album across the cut.
//
// [Engine] composes the stages into the playlist operations the CLI exposes.
//
// # Paging and Early Stop
//
// Saved albums and liked tracks are consumed as lazy [paging.Items] sequences. The reconciler stops ranging at the
// first item that is neither needed to reach the requested count nor unknown to the cache, so the remaining pages
// are never requested.
//
// # Progress Reporting
//
// Components accept an optional progress channel. Sends never block; updates are dropped when the channel is full.
//
// # Failure
//
// Read failures are wrapped with [shared.ErrRemoteRead] and abort before anything is written. Write failures are
// wrapped with [shared.ErrRemoteWrite]; pages written before the failure stay applied.
package tasks

// Package services implements the remote session the sync engine talks to.
//
// # Remote Interface
//
// [Remote] is the capability object threaded through every component that reads or writes the user's library. It
// exposes three paged listings (saved albums, saved tracks, playlist items), a batch track lookup and the four
// playlist mutations. Implementations enforce no batching of their own beyond the remote limits; callers split
// work into [ReadBatch] and [WriteBatch] sized requests.
//
// # Spotify Implementation
//
// [SpotifyService] wraps a github.com/zmb3/spotify/v2 client built from an [oauth2.Token]. The oauth2 transport
// refreshes expired tokens on its own; [SpotifyService.Token] exposes the current token so the CLI can persist it.
//
// Every request waits on a [rate.Limiter] first. Positioned inserts are sent as raw requests because the client
// library's add call has no position parameter.
//
// # Error Handling
//
// Errors are returned as-is from the client library, wrapped with the operation name. Classification into
// [shared.ErrRemoteRead] and [shared.ErrRemoteWrite] happens in the callers that know whether the failure aborts a
// read or leaves a partial write behind.
package services

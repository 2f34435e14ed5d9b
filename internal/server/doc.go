// Package server runs the short-lived HTTP listener behind `crate auth login`.
//
// A [Callback] accepts the authorization redirect for one login attempt. It checks the state parameter,
// exchanges the code through an [Exchanger] and reports a single [CallbackResult]. [NewCallbackMux] mounts it on
// the path of the configured redirect URI behind [Middleware] such as [Logging].
//
// [AwaitToken] listens on the configured callback address (127.0.0.1:3000 by default) and shuts the listener down
// once the token arrives or the wait times out.
package server

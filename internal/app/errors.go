package app

import "errors"

// ErrAuthenticationFailed marks a rejected API token. Realtime and polling
// trouble degrade in place instead of erroring out, so this is the one
// failure the surfaces need to tell apart.
var ErrAuthenticationFailed = errors.New("notifier authentication failed")

package playlist

import "errors"

// ErrEmptyBody is returned when the playlist document has no content.
var ErrEmptyBody = errors.New("playlist: empty body")

// ErrNotPlaylist describes a document with no recognizable playlist
// directives. Resolve does not return it: such a document is parsed as a
// media playlist whose non-"#" lines are segment URLs.
var ErrNotPlaylist = errors.New("playlist: document has no playlist lines")

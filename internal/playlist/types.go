// Package playlist resolves a playlist URL into an ordered segment list (for
// a media playlist) or a list of variants (for a master playlist). The HTTP
// transport follows a pkg/http.Client construction; the line-oriented
// parser itself is hand-rolled since no general-purpose m3u8 library appears
// anywhere in the retrieval corpus.
package playlist

// Variant is one entry of a master playlist: a candidate media playlist at a
// given resolution/bandwidth. Selection among variants is the caller's
// responsibility.
type Variant struct {
	URL        string
	Resolution string // "WxH", empty if absent
	Bandwidth  int64  // bits/sec, 0 if absent
}

// Resolved is the outcome of resolving a media playlist.
type Resolved struct {
	// Segments is the ordered, absolute segment URL list.
	Segments []string
	// DurationSeconds is the aggregate declared duration from #EXTINF lines.
	DurationSeconds float64
	// Live is true when the playlist is a rolling/live playlist rather than
	// a VOD one. Tracking live-edge movement is out of scope; the resolver
	// only surfaces the flag to the caller.
	Live bool
}

// Master is the outcome of resolving a master (variant list) playlist.
type Master struct {
	Variants []Variant
}

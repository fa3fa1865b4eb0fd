package playlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/streamvault/hlsdl/internal/engineerr"
)

// Result is the outcome of resolving a playlist URL: exactly one of Master
// or Media is populated, depending on whether the document classifies as a
// master (variant list) or media (segment list) playlist.
type Result struct {
	IsMaster bool
	Master   Master
	Media    Resolved
}

// Resolver fetches and classifies playlist documents.
type Resolver struct {
	client *http.Client
}

// New creates a Resolver with the default HTTP client.
func New() *Resolver {
	return &Resolver{client: newClient()}
}

// Resolve fetches playlistURL and classifies it as master or media,
// returning the parsed result. Network errors, non-2xx responses, and empty
// bodies fail with a playlist-parse error.
func (r *Resolver) Resolve(ctx context.Context, playlistURL string) (*Result, error) {
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, engineerr.New(engineerr.KindPlaylistParse, playlistURL, false, err)
	}

	body, err := r.fetch(ctx, base)
	if err != nil {
		return nil, err
	}

	lines := nonEmptyLines(body)
	if len(lines) == 0 {
		return nil, engineerr.New(engineerr.KindPlaylistParse, playlistURL, false, ErrEmptyBody)
	}

	if isMaster(lines) {
		m, err := parseMaster(lines, base)
		if err != nil {
			return nil, engineerr.New(engineerr.KindPlaylistParse, playlistURL, false, err)
		}
		return &Result{IsMaster: true, Master: m}, nil
	}

	media, err := parseMedia(lines, base)
	if err != nil {
		return nil, engineerr.New(engineerr.KindPlaylistParse, playlistURL, false, err)
	}
	return &Result{IsMaster: false, Media: media}, nil
}

func (r *Resolver) fetch(ctx context.Context, base *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, engineerr.New(engineerr.KindPlaylistParse, base.String(), false, err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Referer", base.String())
	req.Header.Set("Accept", "*/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, engineerr.New(engineerr.KindPlaylistParse, base.String(), false, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, engineerr.New(engineerr.KindPlaylistParse, base.String(), false,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, engineerr.New(engineerr.KindPlaylistParse, base.String(), false, err)
	}
	if len(body) == 0 {
		return nil, engineerr.New(engineerr.KindPlaylistParse, base.String(), false, ErrEmptyBody)
	}

	return body, nil
}

func nonEmptyLines(body []byte) []string {
	rawLines := strings.Split(string(body), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func isMaster(lines []string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, "#EXT-X-STREAM-INF") {
			return true
		}
	}
	return false
}

func parseMaster(lines []string, base *url.URL) (Master, error) {
	var m Master
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "#EXT-X-STREAM-INF") {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		directive := lines[i]
		urlLine := lines[i+1]
		i++

		resolved, err := resolveRef(base, urlLine)
		if err != nil {
			return Master{}, err
		}

		v := Variant{URL: resolved}
		if res := attrString(directive, "RESOLUTION"); res != "" {
			v.Resolution = res
		}
		if bw := attrString(directive, "BANDWIDTH"); bw != "" {
			if n, err := strconv.ParseInt(bw, 10, 64); err == nil {
				v.Bandwidth = n
			}
		}
		m.Variants = append(m.Variants, v)
	}
	return m, nil
}

func parseMedia(lines []string, base *url.URL) (Resolved, error) {
	var out Resolved
	sawVOD := false
	sawTargetDuration := false
	sawLiveTag := false

	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "#EXTINF:"):
			out.DurationSeconds += parseExtinfDuration(l)
		case strings.HasPrefix(l, "#EXT-X-PLAYLIST-TYPE:VOD"):
			sawVOD = true
		case strings.HasPrefix(l, "#EXT-X-PLAYLIST-TYPE:LIVE"):
			sawLiveTag = true
		case strings.HasPrefix(l, "#EXT-X-TARGETDURATION"):
			sawTargetDuration = true
		case strings.HasPrefix(l, "#"):
			// other directive, ignored
		default:
			resolved, err := resolveRef(base, l)
			if err != nil {
				return Resolved{}, err
			}
			out.Segments = append(out.Segments, resolved)
		}
	}

	out.Live = sawLiveTag || (sawTargetDuration && !sawVOD)
	return out, nil
}

// parseExtinfDuration extracts <d> from "#EXTINF:<d>,...". Malformed values
// contribute 0 rather than failing the whole resolve.
func parseExtinfDuration(line string) float64 {
	rest := strings.TrimPrefix(line, "#EXTINF:")
	if idx := strings.IndexByte(rest, ','); idx >= 0 {
		rest = rest[:idx]
	}
	rest = strings.TrimSpace(rest)
	d, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0
	}
	return d
}

// resolveRef resolves ref against base: absolute URLs pass through
// unchanged, relative ones resolve against base's parent path (for media
// segments) or against base directly (for master variant URLs) — url.URL's
// ResolveReference implements both cases correctly since a plain filename
// reference already resolves against the directory of base.
func resolveRef(base *url.URL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("playlist: invalid reference %q: %w", ref, err)
	}
	return base.ResolveReference(refURL).String(), nil
}

// attrString extracts KEY=value or KEY="value" from an HLS attribute line.
func attrString(line, key string) string {
	idx := strings.Index(line, key+"=")
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(key)+1:]
	if len(rest) > 0 && rest[0] == '"' {
		rest = rest[1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if end := strings.IndexByte(rest, ','); end >= 0 {
		return rest[:end]
	}
	return rest
}

package domain

import (
	"strings"
)

// SearchSource represents the platform searched for a text query.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceSpotify searches Spotify (requires the LavaSrc plugin on the node).
	SourceSpotify SearchSource = "spsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
)

var searchSources = []SearchSource{SourceYouTube, SourceSpotify, SourceSoundCloud}

// ParseSearchSource converts a user-facing source name to a SearchSource.
// Unknown names fall back to YouTube.
func ParseSearchSource(name string) SearchSource {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "spotify":
		return SourceSpotify
	case "soundcloud":
		return SourceSoundCloud
	default:
		return SourceYouTube
	}
}

// Name returns the user-facing name of the source.
func (s SearchSource) Name() string {
	switch s {
	case SourceSpotify:
		return "spotify"
	case SourceSoundCloud:
		return "soundcloud"
	default:
		return "youtube"
	}
}

// Prefix prepends the source's search token to query.
func (s SearchSource) Prefix(query string) string {
	return string(s) + ":" + strings.TrimSpace(query)
}

// SearchQuery represents a query for resolving songs.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source, empty for direct identifiers
	IsURL  bool         // Whether the query is a direct URL
}

// NewSearchQuery creates a SearchQuery from user input.
// URLs and already-prefixed searches are passed through; anything else is
// searched on YouTube.
func NewSearchQuery(input string) *SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return &SearchQuery{Query: input, IsURL: true}
	}

	if source, term, ok := splitSearchPrefix(input); ok {
		return &SearchQuery{Query: term, Source: source}
	}

	return &SearchQuery{Query: input, Source: SourceYouTube}
}

// Identifier returns the identifier passed to the audio node.
func (q *SearchQuery) Identifier() string {
	if q.IsURL {
		return q.Query
	}
	return q.Source.Prefix(q.Query)
}

// IsValid returns true if the query is not empty.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

// IsSearch returns true if the query is a text search rather than a URL.
func (q *SearchQuery) IsSearch() bool {
	return !q.IsURL
}

func splitSearchPrefix(input string) (SearchSource, string, bool) {
	for _, source := range searchSources {
		prefix := string(source) + ":"
		if strings.HasPrefix(input, prefix) {
			return source, strings.TrimSpace(strings.TrimPrefix(input, prefix)), true
		}
	}
	return "", "", false
}

// isURL checks if the input looks like a URL.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

// IsYouTubeURL reports whether the input links to YouTube.
func IsYouTubeURL(input string) bool {
	return strings.Contains(input, "youtube.com") || strings.Contains(input, "youtu.be")
}

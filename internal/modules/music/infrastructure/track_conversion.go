package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

var (
	// ErrNoResults is returned when a query resolves to nothing.
	ErrNoResults = errors.New("no results found")

	// ErrLoadFailed is returned when Lavalink reports a load exception.
	ErrLoadFailed = errors.New("failed to load track")
)

// loadedSongs is a converted Lavalink load result.
type loadedSongs struct {
	songs    []domain.Song
	playlist *domain.Playlist // set only for playlist results
}

// convertLoadResult converts a Lavalink load result into songs.
// Search results keep only the best match, playlists keep every track.
// Load exceptions are returned as ErrLoadFailed carrying only Lavalink's message.
func convertLoadResult(result *lavalink.LoadResult, query *domain.SearchQuery) (*loadedSongs, error) {
	if result == nil {
		return nil, ErrNoResults
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return &loadedSongs{songs: []domain.Song{convertTrack(data)}}, nil

	case lavalink.Search:
		if len(data) == 0 {
			return nil, ErrNoResults
		}
		return &loadedSongs{songs: []domain.Song{convertTrack(data[0])}}, nil

	case lavalink.Playlist:
		if len(data.Tracks) == 0 {
			return nil, ErrNoResults
		}
		songs := make([]domain.Song, len(data.Tracks))
		for i, track := range data.Tracks {
			songs[i] = convertTrack(track)
		}
		playlist := &domain.Playlist{
			Name:      data.Info.Name,
			Thumbnail: songs[0].Thumbnail,
			Songs:     songs,
		}
		if query.IsURL {
			playlist.URL = query.Query
		}
		return &loadedSongs{songs: songs, playlist: playlist}, nil

	case lavalink.Exception:
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, data.Message)

	default:
		return nil, ErrNoResults
	}
}

// convertTrack converts a Lavalink track to a Song.
func convertTrack(track lavalink.Track) domain.Song {
	info := track.Info

	return domain.Song{
		Encoded:    track.Encoded,
		Identifier: info.Identifier,
		Name:       info.Title,
		Artist:     info.Author,
		URL:        stringValue(info.URI),
		Thumbnail:  thumbnailURL(info),
		Duration:   time.Duration(info.Length) * time.Millisecond,
		IsLive:     info.IsStream,
		SourceName: info.SourceName,
	}
}

// thumbnailURL returns the artwork URL, deriving one for YouTube tracks without artwork.
func thumbnailURL(info lavalink.TrackInfo) string {
	if artwork := stringValue(info.ArtworkURL); artwork != "" {
		return artwork
	}
	if info.SourceName == "youtube" && info.Identifier != "" {
		return "https://i.ytimg.com/vi/" + info.Identifier + "/hqdefault.jpg"
	}
	return ""
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

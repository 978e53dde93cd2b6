package importer

import "fmt"

// ProgressUpdate represents a progress event during a long-running import.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTrack Phase = iota
	FetchAlbum
	FetchPlaylist
	FetchArtist
	PageAlbums
	ImportTracks
)

func (p Phase) String() string {
	switch p {
	case FetchTrack:
		return "fetch_track"
	case FetchAlbum:
		return "fetch_album"
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchArtist:
		return "fetch_artist"
	case PageAlbums:
		return "page_albums"
	case ImportTracks:
		return "import_tracks"
	default:
		return ""
	}
}

func fetchTrackUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTrack,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching track %s from Spotify...", id),
	}
}

func fetchAlbumUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchAlbum,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching album (%s)...", name),
	}
}

func fetchPlaylistUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s from Spotify...", id),
	}
}

func fetchArtistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching artist (%s)...", name),
	}
}

func pageAlbumsUpdate(page, fetched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PageAlbums,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("Fetching discography page %d...", page),
	}
}

func importTrackUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Importing track (%s)...", name),
		Data:    name,
	}
}

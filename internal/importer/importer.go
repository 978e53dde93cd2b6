// package importer implements the Spotify catalog import pipeline.
//
// The core abstraction is ImportEngine, which pulls a track, album, playlist,
// or artist discography from the upstream catalog and upserts normalized rows
// (artist, album, track, split links) into the local store. Every write is
// insert-if-absent keyed by external ID, so re-running an import is safe and
// never duplicates rows. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/tunesmith-hq/tunesmith/internal/models"
	"github.com/tunesmith-hq/tunesmith/internal/repositories"
	"github.com/tunesmith-hq/tunesmith/internal/services"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"golang.org/x/time/rate"
)

// pageSize is the Spotify pagination window for discography fetches.
const pageSize = 50

// Import types accepted by [ImportEngine.Run].
const (
	TypeTrack    = "track"
	TypeAlbum    = "album"
	TypePlaylist = "playlist"
	TypeArtist   = "artist"
)

// ImportRequest identifies what to import and for which organization.
type ImportRequest struct {
	Type           string `json:"type"`
	SpotifyID      string `json:"spotifyId"`
	OrganizationID string `json:"organizationId"`
}

// Validate checks the request names a known type and carries both ids.
func (r ImportRequest) Validate() error {
	switch r.Type {
	case TypeTrack, TypeAlbum, TypePlaylist, TypeArtist:
	default:
		return fmt.Errorf("%w: import type %q", shared.ErrInvalidArgument, r.Type)
	}
	if r.SpotifyID == "" {
		return fmt.Errorf("%w: spotifyId", shared.ErrMissingArgument)
	}
	if r.OrganizationID == "" {
		return fmt.Errorf("%w: organizationId", shared.ErrMissingArgument)
	}
	return nil
}

// ImportedTrack summarizes one processed track for the response payload.
type ImportedTrack struct {
	Name          string   `json:"name"`
	ArtistName    string   `json:"artistName"`
	AlbumName     string   `json:"albumName,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
}

// ImportSummary is the result of a completed import.
//
// Imported counts newly inserted tracks; Total counts every track processed,
// including ones that already existed.
type ImportSummary struct {
	Success  bool            `json:"success"`
	Type     string          `json:"type"`
	Imported int             `json:"imported"`
	Total    int             `json:"total"`
	Tracks   []ImportedTrack `json:"tracks"`
	Message  string          `json:"message"`
}

// ImportEngine orchestrates catalog imports against the repositories.
//
// All upstream calls share one [rate.Limiter] and run sequentially within an
// import; the request budget is the only concurrency policy. Context
// cancellation is honored between upstream calls.
type ImportEngine struct {
	catalog       services.Service
	collaborators *repositories.CollaboratorRepository
	albums        *repositories.AlbumRepository
	tracks        *repositories.TrackRepository
	limiter       *rate.Limiter
}

// NewImportEngine creates a new ImportEngine. requestsPerSecond bounds
// upstream Spotify calls; values <= 0 fall back to 5.
func NewImportEngine(
	catalog services.Service,
	collaborators *repositories.CollaboratorRepository,
	albums *repositories.AlbumRepository,
	tracks *repositories.TrackRepository,
	requestsPerSecond float64,
) *ImportEngine {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}

	return &ImportEngine{
		catalog:       catalog,
		collaborators: collaborators,
		albums:        albums,
		tracks:        tracks,
		limiter:       rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Run performs the import described by req and returns a summary.
//
// Progress may be nil. Failures part-way through a multi-entity import leave
// already-committed rows in place; a retry re-processes them harmlessly.
func (e *ImportEngine) Run(ctx context.Context, req ImportRequest, progress chan<- ProgressUpdate) (*ImportSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	summary := &ImportSummary{Type: req.Type}

	var err error
	switch req.Type {
	case TypeTrack:
		err = e.runTrack(ctx, req, summary, progress)
	case TypeAlbum:
		err = e.runAlbum(ctx, req, summary, progress)
	case TypePlaylist:
		err = e.runPlaylist(ctx, req, summary, progress)
	case TypeArtist:
		err = e.runArtist(ctx, req, summary, progress)
	}
	if err != nil {
		return nil, err
	}

	summary.Success = true
	if summary.Message == "" {
		summary.Message = fmt.Sprintf("Imported %d of %d tracks", summary.Imported, summary.Total)
	}
	return summary, nil
}

func (e *ImportEngine) runTrack(ctx context.Context, req ImportRequest, summary *ImportSummary, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, fetchTrackUpdate(req.SpotifyID))

	if err := e.await(ctx); err != nil {
		return err
	}
	track, err := e.catalog.Track(ctx, req.SpotifyID)
	if err != nil {
		return err
	}

	created, record, err := e.importTrack(ctx, *track, req.OrganizationID, "", "")
	if err != nil {
		return err
	}

	summary.Total = 1
	summary.Tracks = append(summary.Tracks, record)
	if created {
		summary.Imported = 1
	} else {
		summary.Message = fmt.Sprintf("Track %q already exists", track.Name)
	}
	return nil
}

func (e *ImportEngine) runAlbum(ctx context.Context, req ImportRequest, summary *ImportSummary, progress chan<- ProgressUpdate) error {
	imported, total, tracks, err := e.importAlbumByID(ctx, req.SpotifyID, req.OrganizationID, progress)
	if err != nil {
		return err
	}

	summary.Imported = imported
	summary.Total = total
	summary.Tracks = tracks
	return nil
}

func (e *ImportEngine) runPlaylist(ctx context.Context, req ImportRequest, summary *ImportSummary, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, fetchPlaylistUpdate(req.SpotifyID))

	if err := e.await(ctx); err != nil {
		return err
	}
	playlist, err := e.catalog.Playlist(ctx, req.SpotifyID)
	if err != nil {
		return err
	}

	items := playlist.ImportableItems()
	summary.Total = len(items)

	for i, track := range items {
		e.sendProgress(progress, importTrackUpdate(i+1, len(items), track.Name))

		created, record, err := e.importTrack(ctx, track, req.OrganizationID, "", "")
		if err != nil {
			return err
		}

		summary.Tracks = append(summary.Tracks, record)
		if created {
			summary.Imported++
		}
	}

	return nil
}

func (e *ImportEngine) runArtist(ctx context.Context, req ImportRequest, summary *ImportSummary, progress chan<- ProgressUpdate) error {
	if err := e.await(ctx); err != nil {
		return err
	}
	artist, err := e.catalog.Artist(ctx, req.SpotifyID)
	if err != nil {
		return err
	}

	e.sendProgress(progress, fetchArtistUpdate(artist.Name))

	// The artist's own collaborator row is created up front, with the name
	// from the artist object rather than a blank placeholder.
	if _, _, err := e.upsertCollaborator(*artist, req.OrganizationID); err != nil {
		return err
	}

	// Discography pagination is strictly sequential: one page of 50, then the
	// albums on it, before the next offset is requested.
	page := 0
	offset := 0
	for {
		if err := e.await(ctx); err != nil {
			return err
		}
		albums, err := e.catalog.ArtistAlbums(ctx, req.SpotifyID, pageSize, offset)
		if err != nil {
			return err
		}

		page++
		e.sendProgress(progress, pageAlbumsUpdate(page, offset+len(albums.Items), albums.Total))

		for _, album := range albums.Items {
			imported, total, tracks, err := e.importAlbumByID(ctx, album.ID, req.OrganizationID, progress)
			if err != nil {
				return err
			}
			summary.Imported += imported
			summary.Total += total
			summary.Tracks = append(summary.Tracks, tracks...)
		}

		if albums.Next == nil || *albums.Next == "" {
			break
		}
		offset += pageSize
	}

	return nil
}

// importAlbumByID fetches an album, upserts it, and processes every track
// sequentially, following the album's own tracklist pagination.
func (e *ImportEngine) importAlbumByID(ctx context.Context, albumID, organizationID string, progress chan<- ProgressUpdate) (imported, total int, records []ImportedTrack, err error) {
	if err := e.await(ctx); err != nil {
		return 0, 0, nil, err
	}
	album, err := e.catalog.Album(ctx, albumID)
	if err != nil {
		return 0, 0, nil, err
	}

	e.sendProgress(progress, fetchAlbumUpdate(album.Name))

	localAlbumID, _, err := e.upsertAlbum(*album, organizationID)
	if err != nil {
		return 0, 0, nil, err
	}

	items := album.Tracks.Items
	next := album.Tracks.Next
	offset := len(items)

	for {
		for _, track := range items {
			total++
			e.sendProgress(progress, importTrackUpdate(total, album.TotalTracks, track.Name))

			created, record, err := e.importTrack(ctx, track, organizationID, localAlbumID, album.Name)
			if err != nil {
				return imported, total, records, err
			}

			records = append(records, record)
			if created {
				imported++
			}
		}

		if next == nil || *next == "" {
			break
		}

		if err := e.await(ctx); err != nil {
			return imported, total, records, err
		}
		pageResult, err := e.catalog.AlbumTracks(ctx, albumID, pageSize, offset)
		if err != nil {
			return imported, total, records, err
		}

		items = pageResult.Items
		next = pageResult.Next
		offset += len(pageResult.Items)
	}

	return imported, total, records, nil
}

// importTrack upserts one track along with its album (when localAlbumID is
// empty and the track carries one) and all listed artists. Each artist is
// linked to the track as a writer.
func (e *ImportEngine) importTrack(ctx context.Context, track services.SpotifyTrack, organizationID, localAlbumID, albumName string) (bool, ImportedTrack, error) {
	record := ImportedTrack{Name: track.Name, AlbumName: albumName}
	if len(track.Artists) > 0 {
		record.ArtistName = track.Artists[0].Name
	}

	if localAlbumID == "" && track.Album.ID != "" {
		id, _, err := e.upsertAlbum(track.Album, organizationID)
		if err != nil {
			return false, record, err
		}
		localAlbumID = id
		record.AlbumName = track.Album.Name
	}

	collaboratorIDs := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		id, _, err := e.upsertCollaborator(artist, organizationID)
		if err != nil {
			return false, record, err
		}
		collaboratorIDs = append(collaboratorIDs, id)
		record.Collaborators = append(record.Collaborators, artist.Name)
	}

	existing, err := e.tracks.GetBySpotifyID(track.ID, organizationID)
	switch {
	case err == nil:
		// Insert-or-do-nothing: existing rows keep their fields, but artist
		// links are still topped up so partial imports converge.
		for _, collaboratorID := range collaboratorIDs {
			if _, err := e.tracks.LinkCollaborator(existing.ID, collaboratorID, "writer"); err != nil {
				return false, record, err
			}
		}
		return false, record, nil

	case errors.Is(err, shared.ErrNotFound):
		// fall through to create

	default:
		return false, record, err
	}

	newTrack := &models.Track{
		OrganizationID: organizationID,
		AlbumID:        localAlbumID,
		Title:          track.Name,
		Status:         models.StatusReleased,
		ISRC:           track.ExternalIDs.ISRC,
		SpotifyTrackID: track.ID,
	}
	if len(collaboratorIDs) > 0 {
		newTrack.PrimaryArtistID = collaboratorIDs[0]
	}

	if err := e.tracks.Create(newTrack); err != nil {
		return false, record, err
	}

	for _, collaboratorID := range collaboratorIDs {
		if _, err := e.tracks.LinkCollaborator(newTrack.ID, collaboratorID, "writer"); err != nil {
			return false, record, err
		}
	}

	return true, record, nil
}

// upsertAlbum inserts an album if no row exists for its Spotify ID.
func (e *ImportEngine) upsertAlbum(album services.SpotifyAlbum, organizationID string) (string, bool, error) {
	existing, err := e.albums.GetBySpotifyID(album.ID, organizationID)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", false, err
	}

	newAlbum := &models.Album{
		OrganizationID: organizationID,
		Title:          album.Name,
		ReleaseDate:    album.ReleaseDate,
		UPC:            album.ExternalIDs.UPC,
		EAN:            album.ExternalIDs.EAN,
		SpotifyAlbumID: album.ID,
	}

	if err := e.albums.Create(newAlbum); err != nil {
		return "", false, err
	}

	return newAlbum.ID, true, nil
}

// upsertCollaborator inserts a collaborator if no row exists for the artist's
// Spotify ID.
func (e *ImportEngine) upsertCollaborator(artist services.SpotifyArtist, organizationID string) (string, bool, error) {
	existing, err := e.collaborators.GetBySpotifyID(artist.ID, organizationID)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", false, err
	}

	newCollaborator := &models.Collaborator{
		OrganizationID:  organizationID,
		ArtistName:      artist.Name,
		SpotifyArtistID: artist.ID,
	}

	if err := e.collaborators.Create(newCollaborator); err != nil {
		return "", false, err
	}

	return newCollaborator.ID, true, nil
}

// await blocks until the shared rate limiter grants one upstream request or
// the context is cancelled.
func (e *ImportEngine) await(ctx context.Context) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("import cancelled: %w", err)
	}
	return nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ImportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

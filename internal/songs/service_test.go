package songs

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/harmonyapp/harmony/internal/db"
	"github.com/harmonyapp/harmony/internal/spotify"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewService(dbPair, nil)
}

func sampleTrack() *spotify.Track {
	return &spotify.Track{
		ID:         "abc123",
		Name:       "Midnight City",
		URI:        "spotify:track:abc123",
		DurationMs: 243500,
		Artists: []spotify.ArtistRef{
			{ID: "a1", Name: "M83"},
		},
		Album: spotify.AlbumRef{
			Name: "Hurry Up, We're Dreaming",
			Images: []spotify.Image{
				{URL: "https://img.example.com/640.jpg", Width: 640, Height: 640},
				{URL: "https://img.example.com/300.jpg", Width: 300, Height: 300},
			},
		},
	}
}

func TestResolveCreatesSong(t *testing.T) {
	svc := setupTestService(t)

	song, err := svc.Resolve(sampleTrack())
	require.NoError(t, err)
	require.NotEmpty(t, song.ID)
	require.Equal(t, "Midnight City", song.Title)
	require.Equal(t, "abc123", song.SpotifyID)
	// 243500 ms rounds to 244 seconds.
	require.Equal(t, 244, song.Duration)
	require.NotNil(t, song.Artist)
	require.Equal(t, "M83", *song.Artist)
	require.NotNil(t, song.Thumbnail)
	require.Equal(t, "https://img.example.com/640.jpg", *song.Thumbnail)
	require.NotNil(t, song.SpotifyURI)
	require.Equal(t, "spotify:track:abc123", *song.SpotifyURI)
}

func TestResolveIsIdempotentPerSpotifyID(t *testing.T) {
	svc := setupTestService(t)

	first, err := svc.Resolve(sampleTrack())
	require.NoError(t, err)

	// A second resolve with a diverged payload still returns the stored row.
	changed := sampleTrack()
	changed.Name = "Midnight City (Remaster)"
	second, err := svc.Resolve(changed)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Midnight City", second.Title)
}

func TestResolveJoinsMultipleArtists(t *testing.T) {
	svc := setupTestService(t)

	track := sampleTrack()
	track.Artists = []spotify.ArtistRef{
		{Name: "Daft Punk"},
		{Name: "Pharrell Williams"},
		{Name: "Nile Rodgers"},
	}

	song, err := svc.Resolve(track)
	require.NoError(t, err)
	require.NotNil(t, song.Artist)
	require.Equal(t, "Daft Punk, Pharrell Williams, Nile Rodgers", *song.Artist)
}

func TestResolveSparseTrack(t *testing.T) {
	svc := setupTestService(t)

	song, err := svc.Resolve(&spotify.Track{ID: "sparse1", Name: "Untitled"})
	require.NoError(t, err)
	require.Nil(t, song.Artist)
	require.Nil(t, song.Thumbnail)
	require.Nil(t, song.SpotifyURI)
	require.Equal(t, 0, song.Duration)
}

func TestResolveRejectsInvalidTrack(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.Resolve(nil)
	require.ErrorIs(t, err, ErrInvalidTrack)

	_, err = svc.Resolve(&spotify.Track{Name: "No ID"})
	require.ErrorIs(t, err, ErrInvalidTrack)

	_, err = svc.Resolve(&spotify.Track{ID: "no-name"})
	require.ErrorIs(t, err, ErrInvalidTrack)
}

func TestGetUnknownSongReturnsNil(t *testing.T) {
	svc := setupTestService(t)

	song, err := svc.Get("missing")
	require.NoError(t, err)
	require.Nil(t, song)
}

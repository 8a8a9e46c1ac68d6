package queue

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/db"
	"github.com/harmonyapp/harmony/internal/rooms"
	"github.com/harmonyapp/harmony/internal/songs"
	"github.com/harmonyapp/harmony/internal/spotify"
)

type testEnv struct {
	dbPair *db.DBPair
	queue  *Service
	rooms  *rooms.Service
	auth   *auth.Service
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	roomsSvc := rooms.NewService(dbPair, nil)
	songsSvc := songs.NewService(dbPair, nil)

	return &testEnv{
		dbPair: dbPair,
		queue:  NewService(dbPair, roomsSvc, songsSvc, nil),
		rooms:  roomsSvc,
		auth:   auth.NewService(dbPair, nil),
	}
}

func (env *testEnv) user(t *testing.T, email string) string {
	t.Helper()
	profile, err := env.auth.Register(email, "Test User", "password-123")
	require.NoError(t, err)
	return profile.ID
}

func (env *testEnv) room(t *testing.T, creatorID, name string) string {
	t.Helper()
	room, err := env.rooms.Create(creatorID, rooms.CreateRoomInput{Name: name})
	require.NoError(t, err)
	return room.ID
}

func track(id, name string) *spotify.Track {
	return &spotify.Track{ID: id, Name: name, DurationMs: 180000}
}

func TestEnqueueAssignsSequentialPositions(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomID := env.room(t, alice, "Chill")

	for i, id := range []string{"t1", "t2", "t3"} {
		queued, err := env.queue.Enqueue(alice, roomID, track(id, "Song "+id))
		require.NoError(t, err)
		require.Equal(t, i, queued.Position)
	}
}

func TestEnqueueSameTrackTwiceReusesSong(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomID := env.room(t, alice, "Chill")

	first, err := env.queue.Enqueue(alice, roomID, track("abc123", "Repeat"))
	require.NoError(t, err)
	second, err := env.queue.Enqueue(alice, roomID, track("abc123", "Repeat"))
	require.NoError(t, err)

	// Two queue entries, one canonical song.
	require.NotEqual(t, first.EntryID, second.EntryID)
	require.Equal(t, first.Song.ID, second.Song.ID)
	require.Equal(t, 0, first.Position)
	require.Equal(t, 1, second.Position)
}

func TestPositionsResumeAfterRemoval(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomID := env.room(t, alice, "Chill")

	a, err := env.queue.Enqueue(alice, roomID, track("t1", "A"))
	require.NoError(t, err)
	b, err := env.queue.Enqueue(alice, roomID, track("t2", "B"))
	require.NoError(t, err)

	// The next insert goes one past the remaining maximum, so a freed
	// tail position is handed out again.
	require.NoError(t, env.queue.Remove(alice, roomID, b.EntryID))

	c, err := env.queue.Enqueue(alice, roomID, track("t3", "C"))
	require.NoError(t, err)
	require.Equal(t, a.Position+1, c.Position)
}

func TestListReturnsPlaybackOrder(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomID := env.room(t, alice, "Chill")

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := env.queue.Enqueue(alice, roomID, track(id, "Song "+id))
		require.NoError(t, err)
	}

	queued, err := env.queue.List(alice, roomID)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	for i := range queued {
		require.Equal(t, i, queued[i].Position)
	}
	require.Equal(t, "Song t1", queued[0].Song.Title)
	require.Equal(t, "Song t3", queued[2].Song.Title)
}

func TestQueuesAreIndependentPerRoom(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomA := env.room(t, alice, "Room A")
	roomB := env.room(t, alice, "Room B")

	_, err := env.queue.Enqueue(alice, roomA, track("t1", "A"))
	require.NoError(t, err)
	queued, err := env.queue.Enqueue(alice, roomB, track("t2", "B"))
	require.NoError(t, err)

	// Each room's positions start from zero.
	require.Equal(t, 0, queued.Position)

	listA, err := env.queue.List(alice, roomA)
	require.NoError(t, err)
	require.Len(t, listA, 1)
}

func TestEnqueueRequiresRoomAccess(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")

	private, err := env.rooms.Create(alice, rooms.CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)

	_, err = env.queue.Enqueue(bob, private.ID, track("t1", "A"))
	require.ErrorIs(t, err, rooms.ErrRoomPrivate)

	_, err = env.queue.Enqueue(bob, "missing", track("t1", "A"))
	require.ErrorIs(t, err, rooms.ErrRoomNotFound)
}

func TestRemovePermissions(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	bob := env.user(t, "bob@example.com")
	carol := env.user(t, "carol@example.com")
	roomID := env.room(t, alice, "Chill")

	require.NoError(t, env.rooms.Join(bob, roomID))
	require.NoError(t, env.rooms.Join(carol, roomID))

	queued, err := env.queue.Enqueue(bob, roomID, track("t1", "A"))
	require.NoError(t, err)

	// A bystander may not remove someone else's entry.
	require.ErrorIs(t, env.queue.Remove(carol, roomID, queued.EntryID), ErrNotAllowed)

	// The adder may.
	require.NoError(t, env.queue.Remove(bob, roomID, queued.EntryID))

	// The room creator may remove anyone's entry.
	queued, err = env.queue.Enqueue(bob, roomID, track("t2", "B"))
	require.NoError(t, err)
	require.NoError(t, env.queue.Remove(alice, roomID, queued.EntryID))
}

func TestRemoveUnknownEntry(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomID := env.room(t, alice, "Chill")
	otherRoom := env.room(t, alice, "Other")

	require.ErrorIs(t, env.queue.Remove(alice, roomID, "missing"), ErrEntryNotFound)

	// An entry id from another room is not found in this one.
	queued, err := env.queue.Enqueue(alice, otherRoom, track("t1", "A"))
	require.NoError(t, err)
	require.ErrorIs(t, env.queue.Remove(alice, roomID, queued.EntryID), ErrEntryNotFound)
}

func TestDeleteOrphansSweepsDanglingEntries(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.user(t, "alice@example.com")
	roomID := env.room(t, alice, "Chill")

	queued, err := env.queue.Enqueue(alice, roomID, track("t1", "A"))
	require.NoError(t, err)
	_, err = env.queue.Enqueue(alice, roomID, track("t2", "B"))
	require.NoError(t, err)

	// Simulate a damaged database: drop a song row out from under its
	// queue entry with enforcement off.
	writer := env.dbPair.Writer()
	_, err = writer.Exec("PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	_, err = writer.Exec("DELETE FROM songs WHERE id = ?", queued.Song.ID)
	require.NoError(t, err)
	_, err = writer.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	// The join-based listing already hides the dangling entry.
	listed, err := env.queue.List(alice, roomID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	swept, err := env.queue.Repo().DeleteOrphans()
	require.NoError(t, err)
	require.Equal(t, int64(1), swept)
}

package rooms

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/harmonyapp/harmony/internal/auth"
	"github.com/harmonyapp/harmony/internal/db"
)

func setupTestService(t *testing.T) (*Service, *auth.Service) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewService(dbPair, nil), auth.NewService(dbPair, nil)
}

func createTestUser(t *testing.T, authSvc *auth.Service, email string) string {
	t.Helper()
	profile, err := authSvc.Register(email, "Test User", "password-123")
	require.NoError(t, err)
	return profile.ID
}

func TestCreateRoomEchoesFields(t *testing.T) {
	svc, authSvc := setupTestService(t)
	userID := createTestUser(t, authSvc, "alice@example.com")

	room, err := svc.Create(userID, CreateRoomInput{
		Name:        "Friday Night",
		Description: "Weekend warmup",
		CoverImage:  "https://img.example.com/cover.png",
		IsPrivate:   true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, room.ID)
	require.Equal(t, "Friday Night", room.Name)
	require.NotNil(t, room.Description)
	require.Equal(t, "Weekend warmup", *room.Description)
	require.NotNil(t, room.CoverImage)
	require.Equal(t, "https://img.example.com/cover.png", *room.CoverImage)
	require.True(t, room.IsPrivate)
	require.Equal(t, userID, room.CreatedBy)
	require.False(t, room.CreatedAt.IsZero())
}

func TestCreateRoomAutoJoinsCreator(t *testing.T) {
	svc, authSvc := setupTestService(t)
	userID := createTestUser(t, authSvc, "alice@example.com")

	room, err := svc.Create(userID, CreateRoomInput{Name: "Solo"})
	require.NoError(t, err)

	members, hasMore, err := svc.Members(userID, room.ID, 50, 0)
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Len(t, members, 1)
	require.Equal(t, userID, members[0].UserID)
}

func TestListVisibleIsUnionOfPublicAndJoined(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")
	bob := createTestUser(t, authSvc, "bob@example.com")

	public, err := svc.Create(alice, CreateRoomInput{Name: "Open Mic"})
	require.NoError(t, err)
	hidden, err := svc.Create(alice, CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)
	ownPrivate, err := svc.Create(bob, CreateRoomInput{Name: "Bob Cave", IsPrivate: true})
	require.NoError(t, err)

	visible, err := svc.List(bob)
	require.NoError(t, err)

	ids := make([]string, 0, len(visible))
	for _, room := range visible {
		ids = append(ids, room.ID)
	}
	require.Contains(t, ids, public.ID)
	require.Contains(t, ids, ownPrivate.ID)
	require.NotContains(t, ids, hidden.ID)
}

func TestListVisibleNewestFirst(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")

	first, err := svc.Create(alice, CreateRoomInput{Name: "First"})
	require.NoError(t, err)
	second, err := svc.Create(alice, CreateRoomInput{Name: "Second"})
	require.NoError(t, err)

	visible, err := svc.List(alice)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	require.Equal(t, second.ID, visible[0].ID)
	require.Equal(t, first.ID, visible[1].ID)
}

func TestGetPrivateRoomAccess(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")
	bob := createTestUser(t, authSvc, "bob@example.com")

	room, err := svc.Create(alice, CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)

	// Creator is auto-joined, so membership wins over creator status.
	_, access, err := svc.Get(alice, room.ID)
	require.NoError(t, err)
	require.Equal(t, AccessPrivateMember, access)

	_, _, err = svc.Get(bob, room.ID)
	require.ErrorIs(t, err, ErrRoomPrivate)
}

func TestGetPublicRoomAccess(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")
	bob := createTestUser(t, authSvc, "bob@example.com")

	room, err := svc.Create(alice, CreateRoomInput{Name: "Open"})
	require.NoError(t, err)

	_, access, err := svc.Get(bob, room.ID)
	require.NoError(t, err)
	require.Equal(t, AccessPublic, access)
}

func TestGetUnknownRoom(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")

	_, _, err := svc.Get(alice, "nope")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinTwiceKeepsSingleMembership(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")
	bob := createTestUser(t, authSvc, "bob@example.com")

	room, err := svc.Create(alice, CreateRoomInput{Name: "Open"})
	require.NoError(t, err)

	require.NoError(t, svc.Join(bob, room.ID))
	require.NoError(t, svc.Join(bob, room.ID))

	members, _, err := svc.Members(alice, room.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestJoinPrivateRoomRequiresCreator(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")
	bob := createTestUser(t, authSvc, "bob@example.com")

	room, err := svc.Create(alice, CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Join(bob, room.ID), ErrRoomPrivate)
	require.NoError(t, svc.Join(alice, room.ID))
}

func TestLeaveWithoutMembershipSucceeds(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")
	bob := createTestUser(t, authSvc, "bob@example.com")

	room, err := svc.Create(alice, CreateRoomInput{Name: "Open"})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(bob, room.ID))
	require.ErrorIs(t, svc.Leave(bob, "nope"), ErrRoomNotFound)
}

func TestMembersPagination(t *testing.T) {
	svc, authSvc := setupTestService(t)
	alice := createTestUser(t, authSvc, "alice@example.com")

	room, err := svc.Create(alice, CreateRoomInput{Name: "Open"})
	require.NoError(t, err)

	for _, email := range []string{"b@example.com", "c@example.com", "d@example.com"} {
		userID := createTestUser(t, authSvc, email)
		require.NoError(t, svc.Join(userID, room.ID))
	}

	page, hasMore, err := svc.Members(alice, room.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.True(t, hasMore)

	rest, hasMore, err := svc.Members(alice, room.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	require.False(t, hasMore)

	// Ordered by join time: creator first.
	require.Equal(t, alice, page[0].UserID)
	require.NotEmpty(t, page[0].DisplayName)
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "eyedraw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	u := &User{Email: "a@clinic.org", PasswordHash: "hash", DisplayName: "Dr A"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	byEmail, err := s.UserByEmail(ctx, "a@clinic.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.True(t, u.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr A", byID.DisplayName)

	err = s.CreateUser(ctx, &User{Email: "a@clinic.org", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.UserByEmail(ctx, "nobody@clinic.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	_, err := s.LatestSnapshot(ctx, "page_1", "ed_right")
	assert.ErrorIs(t, err, ErrNotFound)

	first := &Snapshot{PageID: "page_1", Drawing: "ed_right", Data: []byte(`[]`)}
	require.NoError(t, s.SaveSnapshot(ctx, first))
	assert.Equal(t, 1, first.Version)
	assert.NotEmpty(t, first.ID)

	second := &Snapshot{PageID: "page_1", Drawing: "ed_right", Data: []byte(`[{"subclass":"AntSeg"}]`), Report: "Round pupil"}
	require.NoError(t, s.SaveSnapshot(ctx, second))
	assert.Equal(t, 2, second.Version)

	require.NoError(t, s.SaveSnapshot(ctx, &Snapshot{PageID: "page_1", Drawing: "ed_left", Data: []byte(`[]`)}))
	require.NoError(t, s.SaveSnapshot(ctx, &Snapshot{PageID: "page_2", Drawing: "ed_right", Data: []byte(`[]`)}))

	latest, err := s.LatestSnapshot(ctx, "page_1", "ed_right")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, `[{"subclass":"AntSeg"}]`, string(latest.Data))
	assert.Equal(t, "Round pupil", latest.Report)

	list, err := s.ListSnapshots(ctx, "page_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ed_left", list[0].Drawing)
	assert.Equal(t, "ed_right", list[1].Drawing)
	assert.Equal(t, 2, list[1].Version)

	list, err = s.ListSnapshots(ctx, "page_3")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "eyedraw.db")

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, &Snapshot{PageID: "p", Drawing: "d", Data: []byte(`[]`)}))
	require.NoError(t, s.Close())

	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	snap, err := s.LatestSnapshot(ctx, "p", "d")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
}

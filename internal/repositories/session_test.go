package repositories_test

import (
	"context"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/repositories"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

func TestSessionRepository_ListByCampaign(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewSessionRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := jan1.Add(24 * time.Hour)

	tests := []struct {
		name       string
		campaignID string
		after      *time.Time
		want       []string
	}{
		{name: "all sessions without watermark", campaignID: "c1", after: nil, want: []string{"c1-s1", "c1-s2"}},
		{name: "strictly after watermark", campaignID: "c1", after: &jan1, want: []string{"c1-s2"}},
		{name: "nothing after latest update", campaignID: "c1", after: &jan2, want: []string{}},
		{name: "other campaign", campaignID: "c2", after: nil, want: []string{"c2-s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := repo.ListByCampaign(ctx, tt.campaignID, tt.after)
			require.NoError(t, err)
			ids := make([]string, 0, len(sessions))
			for _, session := range sessions {
				ids = append(ids, session.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestSessionRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewSessionRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	session, err := repo.Get(ctx, "c1-s1")
	require.NoError(t, err)
	require.Equal(t, int64(1), session.Version)

	session.Notes = "<p>Edited.</p>"
	saved, err := repo.Save(ctx, session)
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Version)
	require.Equal(t, "<p>Edited.</p>", saved.Notes)
	require.True(t, saved.UpdatedAt.After(session.UpdatedAt))

	// The original version is now stale.
	session.Notes = "<p>Lost update.</p>"
	_, err = repo.Save(ctx, session)
	require.ErrorIs(t, err, repositories.ErrConflict)
	var conflict *repositories.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, int64(2), conflict.CurrentVersion)

	_, err = repo.Save(ctx, models.Session{ID: "missing", Version: 1})
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewSessionRepository(newTestDB(t), testhelpers.NewLogger(io.Discard))

	created, err := repo.Create(ctx, models.Session{CampaignID: "c1", SessionNumber: 3, Title: "Escape"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, int64(1), created.Version)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	_, err = repo.Create(ctx, models.Session{CampaignID: "c1", SessionNumber: 3})
	require.Error(t, err, "session numbers are unique per campaign")
}

package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGame_StatusHelpers(t *testing.T) {
	tests := []struct {
		status string
		live   bool
		draft  bool
		ended  bool
	}{
		{GameStatusDraft, false, true, false},
		{GameStatusLive, true, false, false},
		{GameStatusEnded, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			g := &Game{Status: tt.status}
			assert.Equal(t, tt.live, g.IsLive())
			assert.Equal(t, tt.draft, g.IsDraft())
			assert.Equal(t, tt.ended, g.IsEnded())
		})
	}
}

func TestGameState_PointAt(t *testing.T) {
	// Arrange
	state := &GameState{GameID: 1}
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	// Act
	state.PointAt(12, 3, now)

	// Assert
	assert.True(t, state.HasActiveQuestion())
	assert.True(t, state.IsCurrentQuestion(12))
	assert.False(t, state.IsCurrentQuestion(13))
	assert.Equal(t, uint(3), *state.CurrentRoundID)
	assert.Equal(t, now, *state.QuestionStartedAt)
}

func TestQuestion_PointsFor(t *testing.T) {
	q := &Question{Points: 10}

	assert.Equal(t, 10, q.PointsFor(true))
	assert.Equal(t, 0, q.PointsFor(false))
}

func TestActor_CanHostSite(t *testing.T) {
	tests := []struct {
		name   string
		actor  *Actor
		siteID uint
		want   bool
	}{
		{"admin на любой площадке", &Actor{UserID: 1, Role: RoleAdmin, SiteID: 1}, 7, true},
		{"ведущий на своей площадке", &Actor{UserID: 2, Role: RoleHost, SiteID: 7}, 7, true},
		{"ведущий на чужой площадке", &Actor{UserID: 2, Role: RoleHost, SiteID: 3}, 7, false},
		{"игрок", &Actor{UserID: 3, Role: "PLAYER", SiteID: 7}, 7, false},
		{"нет пользователя", nil, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.CanHostSite(tt.siteID))
		})
	}
}

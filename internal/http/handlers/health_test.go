package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvee/internal/config"
	"github.com/jmylchreest/tvee/internal/database"
	"github.com/jmylchreest/tvee/internal/epg"
	"github.com/jmylchreest/tvee/internal/playback"
)

type stubGuideStats struct{ stats epg.Stats }

func (s stubGuideStats) Stats() epg.Stats { return s.stats }

func TestHealthHandler_GetHealth(t *testing.T) {
	handler := NewHealthHandler("1.0.0")

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)

	assert.Equal(t, "healthy", output.Body.Status)
	assert.Equal(t, "1.0.0", output.Body.Version)
	assert.NotEmpty(t, output.Body.Uptime)
	assert.NotZero(t, output.Body.CPU.Cores)
	assert.NotZero(t, output.Body.Memory.GoroutineCount)
	assert.Equal(t, "not_configured", output.Body.Database.Status)
	assert.Nil(t, output.Body.Playback)
	assert.Nil(t, output.Body.Guide)
}

func TestHealthHandler_WithDatabase(t *testing.T) {
	db, err := database.New(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, nil, &database.Options{PrepareStmt: false})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	output, err := NewHealthHandler("1.0.0").WithDB(db.DB).GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "healthy", output.Body.Status)
	assert.Equal(t, "ok", output.Body.Database.Status)

	require.NoError(t, db.Close())
	output, err = NewHealthHandler("1.0.0").WithDB(db.DB).GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "degraded", output.Body.Status)
	assert.Equal(t, "error", output.Body.Database.Status)
}

func TestHealthHandler_PlaybackAndGuide(t *testing.T) {
	player := &stubPlayer{}
	_, err := player.Start(context.Background(), 501)
	require.NoError(t, err)

	handler := NewHealthHandler("dev").
		WithPlayer(player).
		WithGuide(stubGuideStats{stats: epg.Stats{Channels: 12, Programmes: 340}})

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)

	require.NotNil(t, output.Body.Playback)
	assert.Equal(t, playback.ResolverCommitted, output.Body.Playback.Resolver)
	assert.Equal(t, 501, output.Body.Playback.ChannelID)
	assert.Equal(t, playback.KindPrimary, output.Body.Playback.Candidate)

	require.NotNil(t, output.Body.Guide)
	assert.Equal(t, 12, output.Body.Guide.Channels)
	assert.Equal(t, 340, output.Body.Guide.Programmes)
}

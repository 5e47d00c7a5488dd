package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhusudan785/SnapStream/internal/models"
)

func TestHealthHandler_GetHealth(t *testing.T) {
	handler := NewHealthHandler("1.0.0")

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "healthy", output.Body.Status)
	assert.Equal(t, "1.0.0", output.Body.Version)
	assert.NotEmpty(t, output.Body.Uptime)
	assert.Greater(t, output.Body.Goroutines, 0)
	assert.Greater(t, output.Body.CPUInfo.Cores, 0)
}

func TestHealthHandler_GetHealth_VideoCount(t *testing.T) {
	env := setupHandlerEnv(t)
	env.seedVideo(t, models.VideoStatusCompleted, []byte("video"))
	handler := NewHealthHandler("1.0.0").WithRepository(env.repo)

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "healthy", output.Body.Status)
	assert.Equal(t, "1", output.Body.Checks["videos"])
}

func TestHealthHandler_GetReadiness_NoDatabase(t *testing.T) {
	handler := NewHealthHandler("1.0.0")

	output, err := handler.GetReadiness(context.Background(), &HealthInput{})
	require.NoError(t, err)
	assert.Equal(t, "not_ready", output.Body.Status)
	assert.Equal(t, "not_configured", output.Body.Components["database"])
}

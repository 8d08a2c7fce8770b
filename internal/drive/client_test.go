package drive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixharvest/pixharvest/internal/config"
	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/observability"
)

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), config.DriveConfig{}, observability.Nop())
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrorTypeConfig, derr.Type)
	assert.Contains(t, err.Error(), "credentials not configured")
}

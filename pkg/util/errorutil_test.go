package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	validation := NewValidationError("subject required", nil)
	assert.True(t, IsValidation(validation))
	assert.False(t, IsNetwork(validation))

	network := NewNetworkError("backend unreachable", errors.New("dial refused"))
	assert.True(t, IsNetwork(network))
	assert.Contains(t, network.Error(), "dial refused")

	normalization := NewNormalizationError("ticket missing id", map[string]any{"keys": []string{"subject"}})
	assert.True(t, IsNormalization(normalization))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewNetworkError("backend unreachable", cause)
	assert.ErrorIs(t, err, cause)
}

func TestSecondaryStep(t *testing.T) {
	err := NewSecondaryEffectError("sla pause", errors.New("timeout"))
	assert.True(t, IsSecondaryEffect(err))
	assert.Equal(t, "sla pause", SecondaryStep(err))

	assert.Empty(t, SecondaryStep(nil))
	assert.Empty(t, SecondaryStep(errors.New("plain")))
	assert.Empty(t, SecondaryStep(NewValidationError("nope", nil)))
}

func TestAsSyncError(t *testing.T) {
	assert.Nil(t, AsSyncError(nil))
	assert.Nil(t, AsSyncError(errors.New("plain")))

	se := AsSyncError(NewNormalizationError("bad payload", nil))
	require.NotNil(t, se)
	assert.Equal(t, CodeNormalizationFailed, se.Code)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))

	typed := NewValidationError("already typed", nil)
	assert.Same(t, AsSyncError(typed), AsSyncError(MapError(typed)))
	assert.True(t, IsValidation(MapError(typed)))

	mapped := MapError(errors.New("some socket thing"))
	assert.True(t, IsNetwork(mapped))
}

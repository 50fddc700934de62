package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/lecternapp/lectern-server/internal/errors"
)

type sampleRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=50"`
	VoiceID string `json:"voice_id,omitempty" validate:"omitempty,min=3"`
	Limit   int    `json:"limit" validate:"gte=0,lte=100"`
}

func TestValidatePasses(t *testing.T) {
	v := New()

	err := v.Validate(sampleRequest{Title: "Dune", VoiceID: "en-us", Limit: 10})
	assert.NoError(t, err)
}

func TestValidateReturnsDomainError(t *testing.T) {
	v := New()

	err := v.Validate(sampleRequest{Limit: 200})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))

	// Field names come from the JSON tags, option suffixes stripped.
	fields, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["title"])
	assert.Equal(t, "must be less than or equal to 100", fields["limit"])
	assert.NotContains(t, fields, "voice_id")
}

func TestValidateOmitemptySkipsEmpty(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(sampleRequest{Title: "x"}))

	err := v.Validate(sampleRequest{Title: "x", VoiceID: "ab"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	fields := domainErr.Details.(map[string]string)
	assert.Equal(t, "must be at least 3 characters", fields["voice_id"])
}

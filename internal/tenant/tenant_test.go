package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/mrz1836/taskflow/internal/errors"
)

func TestOrganization(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, ok := Organization(context.Background())
		assert.False(t, ok)

		_, err := Require(context.Background())
		require.ErrorIs(t, err, flowerrors.ErrTenantRequired)
		require.ErrorIs(t, err, flowerrors.ErrValidation)
	})

	t.Run("blank is treated as missing", func(t *testing.T) {
		ctx := WithOrganization(context.Background(), "   ")
		_, ok := Organization(ctx)
		assert.False(t, ok)
	})

	t.Run("present", func(t *testing.T) {
		ctx := WithOrganization(context.Background(), " acme ")
		id, err := Require(ctx)
		require.NoError(t, err)
		assert.Equal(t, "acme", id)
	})
}

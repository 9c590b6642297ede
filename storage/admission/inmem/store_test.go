package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/admission"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	now := time.Now().UTC()

	require.NoError(t, st.Save(ctx, admission.Draft{ID: "d1", Step: admission.StepPersonal, UpdatedAt: now}))
	require.NoError(t, st.Save(ctx, admission.Draft{ID: "d2", Step: admission.StepReview, UpdatedAt: now.Add(-48 * time.Hour)}))

	d, err := st.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, admission.StepPersonal, d.Step)

	_, err = st.Get(ctx, "nope")
	assert.Equal(t, admission.ErrNotFound, err)

	assert.Equal(t, 1, st.PurgeStale(now.Add(-24*time.Hour)))
	_, err = st.Get(ctx, "d2")
	assert.Equal(t, admission.ErrNotFound, err)

	require.NoError(t, st.Delete(ctx, "d1"))
	assert.Equal(t, admission.ErrNotFound, st.Delete(ctx, "d1"))
}

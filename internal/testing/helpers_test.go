package testing

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDistinctPairs(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	pairs := DistinctPairs([]uuid.UUID{a, b, c})
	require.Equal(t, [][2]uuid.UUID{{a, b}, {a, c}, {b, a}, {b, c}, {c, a}, {c, b}}, pairs)
}

func TestDistinctPairsEmpty(t *testing.T) {
	require.Empty(t, DistinctPairs(nil))
}

func TestReverseIDs(t *testing.T) {
	ids := []int64{1, 2, 3, 4}
	require.Equal(t, []int64{4, 3, 2, 1}, ReverseIDs(ids))
	require.Equal(t, []int64{1, 2, 3, 4}, ids)
}

func TestRandEmail(t *testing.T) {
	email := RandEmail()
	require.True(t, strings.HasSuffix(email, "@example.com"))
	require.Len(t, email, len("@example.com")+10)
}

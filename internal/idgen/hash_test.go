package idgen

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBase36(t *testing.T) {
	tests := []struct {
		data   []byte
		length int
		want   string
	}{
		{[]byte{0}, 3, "000"},
		{[]byte{35}, 2, "0z"},
		{[]byte{36}, 2, "10"},
		{[]byte{0xff, 0xff}, 3, "ekf"}, // 65535 is "1ekf"; the low digits are kept
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeBase36(tt.data, tt.length))
	}
}

func TestHashIDFormatAndDeterminism(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	id := HashID("ch", "Fix login", "", "alice", ts, 6, 0)
	assert.Regexp(t, regexp.MustCompile(`^ch-[0-9a-z]{6}$`), id)
	assert.Equal(t, id, HashID("ch", "Fix login", "", "alice", ts, 6, 0))
	assert.NotEqual(t, id, HashID("ch", "Fix login", "", "alice", ts, 6, 1))
	assert.Regexp(t, `^ch-[0-9a-z]{6}$`, HashID("ch", "x", "", "", ts, 0, 0))
}

func TestGeneratorAvoidsCollisions(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	first := HashID("test", "same", "", "", ts, 6, 0)

	taken := map[string]bool{first: true}
	g := &Generator{
		Prefix: "test",
		Now:    func() time.Time { return ts },
		Exists: func(_ context.Context, id string) (bool, error) { return taken[id], nil },
	}
	id, err := g.Next(context.Background(), "same", "")
	require.NoError(t, err)
	assert.NotEqual(t, first, id)
	assert.Equal(t, HashID("test", "same", "", "", ts, 6, 1), id)
}

func TestGeneratorGrowsLength(t *testing.T) {
	calls := 0
	g := &Generator{
		Exists: func(_ context.Context, id string) (bool, error) {
			calls++
			return calls <= attemptsPerLength, nil
		},
	}
	id, err := g.Next(context.Background(), "t", "")
	require.NoError(t, err)
	assert.Regexp(t, `^ch-[0-9a-z]{7}$`, id)
}

func TestGeneratorGivesUp(t *testing.T) {
	g := &Generator{Exists: func(context.Context, string) (bool, error) { return true, nil }}
	_, err := g.Next(context.Background(), "t", "")
	require.Error(t, err)
}

func TestGeneratorPropagatesLookupErrors(t *testing.T) {
	g := &Generator{Exists: func(context.Context, string) (bool, error) { return false, errors.New("db down") }}
	_, err := g.Next(context.Background(), "t", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestValidatePrefix(t *testing.T) {
	for _, ok := range []string{"ch", "a", "proj2", "abcdefghij"} {
		if err := ValidatePrefix(ok); err != nil {
			t.Errorf("ValidatePrefix(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "2ch", "CH", "ch-x", "abcdefghijk", "a b"} {
		if err := ValidatePrefix(bad); err == nil {
			t.Errorf("ValidatePrefix(%q) = nil, want error", bad)
		}
	}
}

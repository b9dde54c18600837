package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDebugTarget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *DebugTarget
		wantErr bool
	}{
		{name: "valid", input: "owner/repo#123", want: &DebugTarget{Owner: "owner", Repo: "repo", Number: 123}},
		{name: "surrounding whitespace", input: " rust-lang/rust#1 ", want: &DebugTarget{Owner: "rust-lang", Repo: "rust", Number: 1}},
		{name: "missing hash", input: "owner/repo", wantErr: true},
		{name: "missing slash", input: "repo#12", wantErr: true},
		{name: "empty owner", input: "/repo#12", wantErr: true},
		{name: "nested path", input: "a/b/c#12", wantErr: true},
		{name: "zero issue", input: "owner/repo#0", wantErr: true},
		{name: "non numeric", input: "owner/repo#abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDebugTarget(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, fmt.Sprintf("%s/%s#%d", tt.want.Owner, tt.want.Repo, tt.want.Number), got.String())
		})
	}
}

func TestRepositorySet(t *testing.T) {
	set := RepositorySet{Primary: "rust-lang/rust", Secondary: []string{"rust-lang-ci/rust"}}

	primary, ok := set.Contains("Rust-Lang/Rust")
	assert.True(t, ok)
	assert.True(t, primary)

	primary, ok = set.Contains("rust-lang-ci/rust")
	assert.True(t, ok)
	assert.False(t, primary)

	_, ok = set.Contains("someone/else")
	assert.False(t, ok)

	ev := &BuildEvent{Repo: "rust-lang-ci/rust"}
	assert.Equal(t, "rust-lang-ci/rust", set.QueryRepo(ev))

	set.QueryBuildsFromPrimary = true
	assert.Equal(t, "rust-lang/rust", set.QueryRepo(ev))
}

func TestFatal(t *testing.T) {
	base := errors.New("disk full")
	err := fmt.Errorf("saving index: %w", Fatal(base))

	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsFatal(base))
	assert.Nil(t, Fatal(nil))
}

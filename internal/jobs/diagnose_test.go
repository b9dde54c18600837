package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/build-warden/internal/analyzer"
	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/index"
	"github.com/sevigo/build-warden/internal/mocks"
)

func TestDiagnoseJob_CommentTarget(t *testing.T) {
	job := &DiagnoseJob{}

	tests := []struct {
		name   string
		event  *core.BuildEvent
		want   core.CommentTarget
		wantOK bool
	}{
		{
			name:   "pull request of the emitting repository",
			event:  &core.BuildEvent{Repo: "rust-lang/rust", PRNumber: 5},
			want:   core.CommentTarget{Owner: "rust-lang", Repo: "rust", Number: 5},
			wantOK: true,
		},
		{
			name:   "pull request recovered for the primary repository",
			event:  &core.BuildEvent{Repo: "rust-lang-ci/rust", PRRepo: "rust-lang/rust", PRNumber: 9},
			want:   core.CommentTarget{Owner: "rust-lang", Repo: "rust", Number: 9},
			wantOK: true,
		},
		{
			name:  "no pull request",
			event: &core.BuildEvent{Repo: "rust-lang/rust"},
		},
		{
			name:  "malformed repository",
			event: &core.BuildEvent{Repo: "rust", PRNumber: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := job.commentTarget(tc.event)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   *core.BuildEvent
		wantErr string
	}{
		{name: "valid", event: failedEvent("1")},
		{name: "nil", event: nil, wantErr: "nil"},
		{name: "no repository", event: &core.BuildEvent{BuildID: "1", Status: core.StatusFailed}, wantErr: "repository"},
		{name: "no ids", event: &core.BuildEvent{Repo: "a/b", Status: core.StatusFailed}, wantErr: "id"},
		{name: "not failed", event: &core.BuildEvent{Repo: "a/b", BuildID: "1", Status: core.BuildStatus("succeeded")}, wantErr: "status"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateEvent(tc.event)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDiagnoseJob_RunBeforePrepareIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	job := NewDiagnoseJob(rustRepos(), mocks.NewMockCIPlatform(ctrl), analyzer.New(config.AnalyzerConfig{}),
		index.NewFileStore(filepath.Join(t.TempDir(), "index.bwix")), testLogger())

	err := job.Run(context.Background(), failedEvent("1"))
	assert.True(t, core.IsFatal(err))
}

func TestDiagnoseJob_FatalFetchErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	platform := mocks.NewMockCIPlatform(ctrl)
	platform.EXPECT().FetchLog(gomock.Any(), gomock.Any()).Return("", core.Fatal(errors.New("401 bad credentials")))

	path := filepath.Join(t.TempDir(), "index.bwix")
	job := NewDiagnoseJob(rustRepos(), platform, analyzer.New(config.AnalyzerConfig{}),
		index.NewFileStore(path), testLogger())
	require.NoError(t, job.Prepare(context.Background()))

	err := job.Run(context.Background(), failedEvent("1"))
	assert.True(t, core.IsFatal(err))
	assert.NoFileExists(t, path)
}

func TestNewDiagnoseJob_PanicsOnMissingDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewDiagnoseJob(rustRepos(), nil, analyzer.New(config.AnalyzerConfig{}), &failingStore{}, testLogger())
	})
}

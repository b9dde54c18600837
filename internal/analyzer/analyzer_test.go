package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/index"
)

const baseLog = `2024-05-01T10:00:00.1234567Z Run actions/checkout@v4
2024-05-01T10:00:01.0000000Z Syncing repository: rust-lang/rust
2024-05-01T10:00:02.0000000Z Compiling core v0.0.0
2024-05-01T10:00:03.0000000Z Compiling alloc v0.0.0
2024-05-01T10:00:04.0000000Z Finished release [optimized] target(s) in 12.34s
`

func train(t *testing.T, a *Analyzer, logs ...string) *index.Index {
	t.Helper()
	var idx = index.New()
	for _, l := range logs {
		_, updated, err := a.Analyze(context.Background(), l, idx)
		require.NoError(t, err)
		idx = updated.(*index.Index)
	}
	return idx
}

func TestAnalyze_ColdIndexLearnsWithoutDiagnosis(t *testing.T) {
	a := New(config.AnalyzerConfig{})
	idx := index.New()

	diag, updated, err := a.Analyze(context.Background(), baseLog, idx)
	require.NoError(t, err)

	assert.Nil(t, diag)
	assert.Equal(t, uint64(1), updated.Stats().Processed)
	assert.Equal(t, 5, updated.Stats().DistinctLines)
	assert.Equal(t, uint64(0), idx.Processed, "input index must not be modified")
	assert.Empty(t, idx.Lines)
}

func TestAnalyze_ReportsUnseenLines(t *testing.T) {
	a := New(config.AnalyzerConfig{ContextLines: 1})
	idx := train(t, a, baseLog)

	failed := strings.Replace(baseLog,
		"2024-05-01T10:00:04.0000000Z Finished release [optimized] target(s) in 12.34s\n",
		"2024-05-02T11:11:11.0000000Z error[E0308]: mismatched types\n2024-05-02T11:11:12.0000000Z Finished release [optimized] target(s) in 99.01s\n", 1)
	// Timestamps and durations differ, the rest of the log must still be known.
	diag, updated, err := a.Analyze(context.Background(), failed, idx)
	require.NoError(t, err)
	require.NotNil(t, diag)

	assert.Equal(t, []string{
		"2024-05-01T10:00:03.0000000Z Compiling alloc v0.0.0",
		"2024-05-02T11:11:11.0000000Z error[E0308]: mismatched types",
		"2024-05-02T11:11:12.0000000Z Finished release [optimized] target(s) in 99.01s",
	}, diag.Lines)
	assert.InDelta(t, 1.0/6.0, diag.Score, 1e-9)
	assert.Equal(t, uint64(2), updated.Stats().Processed)
	assert.Equal(t, uint32(1), updated.(*index.Index).Count(Hash(Normalize("error[E0308]: mismatched types"))))
}

func TestAnalyze_KnownLogHasNoDiagnosis(t *testing.T) {
	a := New(config.AnalyzerConfig{})
	idx := train(t, a, baseLog)

	diag, _, err := a.Analyze(context.Background(), baseLog, idx)
	require.NoError(t, err)
	assert.True(t, diag.Empty())
}

func TestAnalyze_ExcerptLimitsAndSeparatesBlocks(t *testing.T) {
	a := New(config.AnalyzerConfig{MaxLines: 2})
	idx := train(t, a, "known line\n")

	log := "new one\nknown line\nnew two\nknown line\nknown line\nnew three\n"
	diag, _, err := a.Analyze(context.Background(), log, idx)
	require.NoError(t, err)
	require.NotNil(t, diag)

	assert.Equal(t, []string{"new two", "...", "new three"}, diag.Lines)
}

func TestAnalyze_RepeatedFailure(t *testing.T) {
	failed := strings.Replace(baseLog, "Compiling alloc", "error[E0308]: mismatched types\nCompiling alloc", 1)

	tests := []struct {
		name      string
		threshold uint32
		wantDiag  bool
	}{
		{name: "default threshold forgets a seen error", threshold: 1},
		{name: "threshold two reports it again", threshold: 2, wantDiag: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := New(config.AnalyzerConfig{RareThreshold: tc.threshold})
			idx := train(t, a, baseLog, baseLog, failed)

			diag, _, err := a.Analyze(context.Background(), failed, idx)
			require.NoError(t, err)
			if !tc.wantDiag {
				assert.Nil(t, diag)
				return
			}
			require.NotNil(t, diag)
			assert.Contains(t, strings.Join(diag.Lines, "\n"), "mismatched types")
		})
	}
}

func TestAnalyze_EmptyLog(t *testing.T) {
	a := New(config.AnalyzerConfig{})
	idx := train(t, a, baseLog)

	diag, updated, err := a.Analyze(context.Background(), "", idx)
	require.NoError(t, err)
	assert.Nil(t, diag)
	assert.Equal(t, idx.Stats().DistinctLines, updated.Stats().DistinctLines)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(config.AnalyzerConfig{}).Analyze(ctx, baseLog, index.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{name: "timestamps", a: "2024-05-01T10:00:00.1Z test ok", b: "2023-01-01 09:09:09 test ok"},
		{name: "durations", a: "finished in 1.23s", b: "finished in 45.6s"},
		{name: "commit hashes", a: "HEAD is now at 3f2a9c1d fix", b: "HEAD is now at a81b7e02 fix"},
		{name: "ansi colors", a: "\x1b[31merror\x1b[0m: boom", b: "error: boom"},
		{name: "whitespace", a: "  a   b ", b: "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Normalize(tt.a), Normalize(tt.b))
		})
	}

	assert.Empty(t, Normalize("   "))
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"100%"}, SplitLines("10%\r50%\r100%"))
}

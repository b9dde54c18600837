package github

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/build-warden/internal/core"
)

func TestFormatDiagnosis(t *testing.T) {
	event := &core.BuildEvent{
		Repo:      "rust-lang/rust",
		BuildID:   "9001",
		JobID:     "42",
		Name:      "x86_64-gnu",
		URL:       "https://github.com/rust-lang/rust/actions/runs/9001/job/42",
		CommitSHA: "0123456789abcdef0123",
		Branch:    "auto",
	}

	tests := []struct {
		name     string
		event    *core.BuildEvent
		lines    []string
		contains []string
		excludes []string
	}{
		{
			name:  "header and excerpt",
			event: event,
			lines: []string{"error[E0308]: mismatched types", "...", "test failed"},
			contains: []string{
				"The job **`x86_64-gnu`** failed!",
				"[build log](https://github.com/rust-lang/rust/actions/runs/9001/job/42)",
				"Commit: `0123456789` on `auto`",
				"<details>",
				"```plain\nerror[E0308]: mismatched types\n...\ntest failed\n```",
				"</details>",
			},
		},
		{
			name:     "unnamed build without url",
			event:    &core.BuildEvent{BuildID: "7"},
			lines:    []string{"boom"},
			contains: []string{"The job **`build 7`** failed!"},
			excludes: []string{"build log", "Commit:"},
		},
		{
			name:     "backticks in log lengthen the fence",
			event:    event,
			lines:    []string{"found ``` in output"},
			contains: []string{"````plain\nfound ``` in output\n````"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDiagnosis(tt.event, &core.Diagnosis{Lines: tt.lines})
			for _, c := range tt.contains {
				assert.Contains(t, got, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, got, e)
			}
		})
	}
}

func TestFormatDiagnosis_Truncates(t *testing.T) {
	lines := make([]string, 2000)
	for i := range lines {
		lines[i] = strings.Repeat("x", 99)
	}
	lines[len(lines)-1] = "the last line"

	got := FormatDiagnosis(&core.BuildEvent{BuildID: "1"}, &core.Diagnosis{Lines: lines})

	assert.LessOrEqual(t, len(got), MaxCommentLength)
	assert.Contains(t, got, "the last line")
}

func TestFormatDiagnosis_TruncatesOversizedLine(t *testing.T) {
	huge := "error: " + strings.Repeat("é", MaxCommentLength)

	tests := []struct {
		name  string
		lines []string
	}{
		{name: "single line", lines: []string{huge}},
		{name: "after shorter lines", lines: []string{"warning: unused variable", huge}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatDiagnosis(&core.BuildEvent{BuildID: "1"}, &core.Diagnosis{Lines: tc.lines})

			assert.LessOrEqual(t, len(got), MaxCommentLength)
			assert.True(t, utf8.ValidString(got))
			assert.Contains(t, got, "error: éé")
			assert.Contains(t, got, truncatedMarker)
		})
	}
}

func TestReadTail(t *testing.T) {
	data, err := ReadTail(strings.NewReader("one\ntwo\nthree\n"), 0)
	assert.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", string(data))

	data, err = ReadTail(strings.NewReader("one\ntwo\nthree\n"), 8)
	assert.NoError(t, err)
	assert.Equal(t, "three\n", string(data))

	long := strings.Repeat("line\n", 100000) + "final\n"
	data, err = ReadTail(strings.NewReader(long), 1024)
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(data), 1024)
	assert.True(t, strings.HasSuffix(string(data), "line\nfinal\n"))
}

func TestParseJobID(t *testing.T) {
	id, err := ParseJobID("12345")
	assert.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := ParseJobID(bad)
		assert.Error(t, err, bad)
	}
}

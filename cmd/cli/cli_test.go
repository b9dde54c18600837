package main

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/index"
)

func sampleReport() indexReport {
	return indexReport{
		Location:      "rust.idx",
		Version:       index.Version,
		Processed:     12,
		DistinctLines: 3,
		Top: []index.LineCount{
			{Hash: 0xdeadbeef, Count: 12},
			{Hash: 0x1, Count: 4},
		},
	}
}

func TestWriteReport_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, "json", sampleReport()))

		var got indexReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, sampleReport(), got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, "yaml", sampleReport()))

		var got indexReport
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, sampleReport(), got)
		assert.Contains(t, buf.String(), "distinct_lines: 3")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, "table", sampleReport()))

		out := buf.String()
		assert.Contains(t, out, "Index rust.idx")
		assert.Contains(t, out, "logs processed:  12")
		assert.Contains(t, out, "00000000deadbeef")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writeReport(&bytes.Buffer{}, "xml", sampleReport()))
	})
}

func TestPrintDiagnosis(t *testing.T) {
	tests := []struct {
		name   string
		before core.IndexStats
		diag   *core.Diagnosis
		want   string
	}{
		{name: "cold index", before: core.IndexStats{}, want: "index is empty"},
		{name: "nothing found", before: core.IndexStats{Processed: 3}, want: "Nothing unusual"},
		{
			name:   "diagnosis",
			before: core.IndexStats{Processed: 3},
			diag:   &core.Diagnosis{Lines: []string{"error: boom"}, Score: 0.25},
			want:   "25.0% of the log is unusual)\nerror: boom\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			printDiagnosis(&buf, tc.before, tc.diag)
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

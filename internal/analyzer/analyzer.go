// Package analyzer finds the lines of a failed build log that the index has
// rarely seen before and reports them as the likely cause of the failure.
package analyzer

import (
	"context"
	"encoding/binary"
	"fmt"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/index"
)

var (
	ansiPattern      = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?\s*`)
	hexPattern       = regexp.MustCompile(`\b(0x)?[0-9a-fA-F]{7,}\b`)
	numberPattern    = regexp.MustCompile(`\d+`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// Analyzer implements core.Analyzer.
type Analyzer struct {
	rareThreshold uint32
	contextLines  int
	maxLines      int
}

var _ core.Analyzer = (*Analyzer)(nil)

// New creates an analyzer. Zero values in cfg fall back to the defaults.
func New(cfg config.AnalyzerConfig) *Analyzer {
	a := &Analyzer{
		rareThreshold: cfg.RareThreshold,
		contextLines:  cfg.ContextLines,
		maxLines:      cfg.MaxLines,
	}
	if a.rareThreshold == 0 {
		a.rareThreshold = 1
	}
	if a.contextLines < 0 {
		a.contextLines = 0
	}
	if a.maxLines <= 0 {
		a.maxLines = 40
	}
	return a
}

// Analyze returns the diagnosis for log and a new index that has learned the
// lines of log. idx is left untouched. A diagnosis is only produced once the
// index has learned from at least one earlier log; before that every line
// would look unusual.
func (a *Analyzer) Analyze(ctx context.Context, log string, idx core.Index) (*core.Diagnosis, core.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	current, ok := idx.(*index.Index)
	if !ok || current == nil {
		return nil, nil, fmt.Errorf("analyzer: unexpected index type %T", idx)
	}

	lines := SplitLines(log)
	hashes := make([]uint64, len(lines))
	present := make([]bool, len(lines))
	for i, line := range lines {
		if norm := Normalize(line); norm != "" {
			hashes[i] = Hash(norm)
			present[i] = true
		}
	}

	var unusual []int
	total := 0
	for i := range lines {
		if !present[i] {
			continue
		}
		total++
		if current.Count(hashes[i]) < a.rareThreshold {
			unusual = append(unusual, i)
		}
	}

	updated := current.Clone()
	updated.Processed++
	seen := make(map[uint64]struct{}, len(hashes))
	for i, h := range hashes {
		if !present[i] {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		updated.Observe(h)
	}

	if current.Processed == 0 || len(unusual) == 0 {
		return nil, updated, nil
	}

	return &core.Diagnosis{
		Lines: a.excerpt(lines, unusual),
		Score: float64(len(unusual)) / float64(total),
	}, updated, nil
}

// excerpt keeps the last maxLines unusual lines, adds context around them and
// joins separate blocks with "...".
func (a *Analyzer) excerpt(lines []string, unusual []int) []string {
	if len(unusual) > a.maxLines {
		unusual = unusual[len(unusual)-a.maxLines:]
	}

	type span struct{ from, to int }
	var spans []span
	for _, i := range unusual {
		from := max(0, i-a.contextLines)
		to := min(len(lines)-1, i+a.contextLines)
		if n := len(spans); n > 0 && from <= spans[n-1].to+1 {
			spans[n-1].to = max(spans[n-1].to, to)
			continue
		}
		spans = append(spans, span{from, to})
	}

	var out []string
	for n, s := range spans {
		if n > 0 {
			out = append(out, "...")
		}
		for i := s.from; i <= s.to; i++ {
			out = append(out, StripANSI(lines[i]))
		}
	}
	return out
}

// SplitLines splits a log into lines, dropping carriage returns and a final
// empty line.
func SplitLines(log string) []string {
	if log == "" {
		return nil
	}
	log = strings.ReplaceAll(log, "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(log, "\n"), "\n")
	for i, l := range lines {
		// Progress output rewrites the line in place; only the last frame matters.
		if j := strings.LastIndexByte(l, '\r'); j >= 0 {
			lines[i] = l[j+1:]
		}
	}
	return lines
}

// StripANSI removes terminal escape sequences.
func StripANSI(line string) string {
	return ansiPattern.ReplaceAllString(line, "")
}

// Normalize reduces a line to the part that is stable between builds: no
// escape sequences, no leading timestamp, hashes and numbers collapsed.
func Normalize(line string) string {
	line = StripANSI(line)
	line = timestampPattern.ReplaceAllString(line, "")
	line = hexPattern.ReplaceAllString(line, "#")
	line = numberPattern.ReplaceAllString(line, "0")
	line = spacePattern.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}

// Hash returns the index key of a normalized line.
func Hash(normalized string) uint64 {
	sum := blake3.Sum256([]byte(normalized))
	return binary.LittleEndian.Uint64(sum[:8])
}

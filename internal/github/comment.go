package github

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sevigo/build-warden/internal/core"
)

// MaxCommentLength is the longest body GitHub accepts for an issue comment.
const MaxCommentLength = 65536

const truncatedMarker = " [line truncated]"

// FormatDiagnosis renders the comment posted for a failed build. When the
// excerpt does not fit into a single comment its oldest lines are dropped,
// and a last remaining line that is still too long is cut short.
func FormatDiagnosis(event *core.BuildEvent, diag *core.Diagnosis) string {
	header := formatHeader(event)
	lines := diag.Lines
	for {
		body := header + formatExcerpt(lines)
		if len(body) <= MaxCommentLength || len(lines) == 0 {
			return body
		}
		if len(lines) == 1 {
			line := truncateLine(lines[0], len(body)-MaxCommentLength)
			return header + formatExcerpt([]string{line})
		}
		drop := max(1, len(lines)/10)
		lines = lines[drop:]
	}
}

// truncateLine shortens line by at least over bytes, marker included, without
// splitting a UTF-8 sequence.
func truncateLine(line string, over int) string {
	keep := max(0, len(line)-over-len(truncatedMarker))
	for keep > 0 && !utf8.RuneStart(line[keep]) {
		keep--
	}
	return line[:keep] + truncatedMarker
}

func formatHeader(event *core.BuildEvent) string {
	var sb strings.Builder

	name := event.Name
	if name == "" {
		name = "build " + event.BuildID
	}
	fmt.Fprintf(&sb, "The job **`%s`** failed!", name)
	if event.URL != "" {
		fmt.Fprintf(&sb, " Check out the [build log](%s).", event.URL)
	}
	sb.WriteString("\n\n")
	if event.CommitSHA != "" {
		fmt.Fprintf(&sb, "Commit: `%s`", shortSHA(event.CommitSHA))
		if event.Branch != "" {
			fmt.Fprintf(&sb, " on `%s`", event.Branch)
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func formatExcerpt(lines []string) string {
	var sb strings.Builder
	fence := codeFence(lines)

	sb.WriteString("<details><summary><i>Click to see the possible cause of the failure (guessed by this bot)</i></summary>\n\n")
	sb.WriteString(fence + "plain\n")
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(fence + "\n\n</details>\n")
	return sb.String()
}

// codeFence returns a backtick fence longer than any backtick run in lines.
func codeFence(lines []string) string {
	longest := 0
	for _, line := range lines {
		run := 0
		for _, r := range line {
			if r == '`' {
				run++
				longest = max(longest, run)
			} else {
				run = 0
			}
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func shortSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

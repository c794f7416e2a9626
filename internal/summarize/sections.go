// Package summarize implements the two-stage abstract summarization
// pipeline: condense the English abstract, translate title and summary to
// Russian, and render the delivery message. Model output is free-form text
// with labeled sections; parsing, completeness heuristics and the retry
// state machine live here.
package summarize

import (
	"regexp"
	"strings"
)

// Sections maps an expected field tag to its extracted value. A tag absent
// from the model output is simply missing from the map.
type Sections map[string]string

var (
	sectionTagRe = regexp.MustCompile(`^([A-Z_]+):\s*(.*)$`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// ParseSections extracts labeled blocks from free-form model output.
//
// A line of the form "TAG: ..." where TAG is one of the expected keys opens
// a block, optionally seeded with the trailing same-line text; subsequent
// lines accumulate into it until another recognized tag line. When a tag
// recurs, the longest non-empty candidate wins (models sometimes repeat a
// field correctly after a malformed first try). Runs of 3+ blank lines
// collapse to 2. Absent tags are never an error; callers decide whether a
// missing value is fatal.
func ParseSections(text string, keys ...string) Sections {
	out := make(Sections)
	if strings.TrimSpace(text) == "" {
		return out
	}

	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}

	raw := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	blocks := make(map[string][][]string)

	var (
		currentKey   string
		currentBlock []string
	)

	flush := func() {
		if currentKey == "" {
			return
		}

		if len(currentBlock) > 0 {
			blocks[currentKey] = append(blocks[currentKey], currentBlock)
		}

		currentKey = ""
		currentBlock = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		if m := sectionTagRe.FindStringSubmatch(line); m != nil && keySet[m[1]] {
			flush()
			currentKey = m[1]

			if head := strings.TrimSpace(m[2]); head != "" {
				currentBlock = append(currentBlock, head)
			}

			continue
		}

		if currentKey != "" {
			currentBlock = append(currentBlock, line)
		}
	}

	flush()

	for _, k := range keys {
		best := ""

		for _, block := range blocks[k] {
			value := strings.TrimSpace(strings.Join(block, "\n"))
			if len(value) > len(best) {
				best = value
			}
		}

		if best != "" {
			out[k] = blankRunRe.ReplaceAllString(best, "\n\n")
		}
	}

	return out
}

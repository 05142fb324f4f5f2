package notes_test

import (
	"github.com/myrjola/chronicler/internal/notes"
	"github.com/stretchr/testify/require"
	"testing"
)

const expansionOutput = `## TITLE
The Gilded Cage
## SUMMARY
Torik finds Betar.
## NOTES
Torik found his brother Betar in a cage.
# Not a marker heading
### REASONING
Kept the rescue central.
`

func parseInChunks(output string, size int) notes.Expansion {
	parser := notes.NewSectionParser()
	var expansion notes.Expansion
	for len(output) > 0 {
		n := min(size, len(output))
		expansion.Add(parser.Feed(output[:n])...)
		output = output[n:]
	}
	expansion.Add(parser.Flush()...)
	return expansion.Trimmed()
}

func TestSectionParser_chunkBoundaries(t *testing.T) {
	want := notes.Expansion{
		Title:     "The Gilded Cage",
		Summary:   "Torik finds Betar.",
		Notes:     "Torik found his brother Betar in a cage.\n# Not a marker heading",
		Reasoning: "Kept the rescue central.",
	}
	for _, size := range []int{1, 2, 3, 5, 7, 16, len(expansionOutput)} {
		require.Equal(t, want, parseInChunks(expansionOutput, size), "chunk size %d", size)
	}
}

func TestSectionParser_defaultsToNotes(t *testing.T) {
	got := parseInChunks("Quick notes without markers\nsecond line", 4)
	require.Equal(t, notes.Expansion{Notes: "Quick notes without markers\nsecond line"}, got)
}

func TestSectionParser_markerVariants(t *testing.T) {
	got := parseInChunks("# **Title**:\nA\n##summary\nB\n#### NOTES\nC", 3)
	require.Equal(t, "A", got.Title)
	require.Equal(t, "B\n#### NOTES\nC", got.Summary)
}

func TestSectionParser_streamsPlainText(t *testing.T) {
	parser := notes.NewSectionParser()
	require.Empty(t, parser.Feed("## SUMM"), "a possible marker is held back")
	require.Empty(t, parser.Feed("ARY\n"))
	deltas := parser.Feed("Torik fou")
	require.Equal(t, []notes.SectionDelta{{Section: notes.SectionSummary, Text: "Torik fou"}}, deltas)
	deltas = parser.Feed("nd Betar.\n## NOTES\nx")
	require.Equal(t, []notes.SectionDelta{
		{Section: notes.SectionSummary, Text: "nd Betar.\n"},
		{Section: notes.SectionNotes, Text: "x"},
	}, deltas)
	require.Empty(t, parser.Flush())
}

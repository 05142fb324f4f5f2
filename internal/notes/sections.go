package notes

import (
	"strings"
)

// Section is a part of an expanded session write-up.
type Section string

const (
	SectionTitle     Section = "title"
	SectionSummary   Section = "summary"
	SectionNotes     Section = "notes"
	SectionReasoning Section = "reasoning"
)

// SectionDelta is text appended to a section.
type SectionDelta struct {
	Section Section `json:"section"`
	Text    string  `json:"text"`
}

// SectionParser splits streamed model output into sections introduced by marker lines such as "## SUMMARY".
//
// Chunks may split lines and markers anywhere. Text before the first marker belongs to SectionNotes. Lines that
// could still turn out to be markers are held back until their end is seen. Everything else is emitted as soon
// as it arrives.
type SectionParser struct {
	current Section
	line    strings.Builder
	// streaming is set while the rest of the current line is known to be plain text.
	streaming bool
}

func NewSectionParser() *SectionParser {
	return &SectionParser{
		current:   SectionNotes,
		line:      strings.Builder{},
		streaming: false,
	}
}

// Feed consumes chunk and returns the section text it completes.
func (p *SectionParser) Feed(chunk string) []SectionDelta {
	var deltas []SectionDelta
	emit := func(text string) {
		if text == "" {
			return
		}
		if n := len(deltas); n > 0 && deltas[n-1].Section == p.current {
			deltas[n-1].Text += text
			return
		}
		deltas = append(deltas, SectionDelta{Section: p.current, Text: text})
	}

	for chunk != "" {
		var (
			piece     string
			endOfLine bool
		)
		newlineIdx := strings.IndexByte(chunk, '\n')
		if newlineIdx == -1 {
			piece, chunk = chunk, ""
		} else {
			piece, chunk = chunk[:newlineIdx+1], chunk[newlineIdx+1:]
			endOfLine = true
		}

		if p.streaming {
			emit(piece)
			p.streaming = !endOfLine
			continue
		}

		p.line.WriteString(piece)
		line := p.line.String()
		switch {
		case endOfLine:
			p.line.Reset()
			if section, ok := parseMarker(line); ok {
				p.current = section
				continue
			}
			emit(line)
		case !couldBeMarker(line):
			p.line.Reset()
			p.streaming = true
			emit(line)
		}
	}
	return deltas
}

// Flush returns the held back remainder once the stream has ended.
func (p *SectionParser) Flush() []SectionDelta {
	line := p.line.String()
	p.line.Reset()
	p.streaming = false
	if section, ok := parseMarker(line); ok {
		p.current = section
		return nil
	}
	if line == "" {
		return nil
	}
	return []SectionDelta{{Section: p.current, Text: line}}
}

func couldBeMarker(partial string) bool {
	trimmed := strings.TrimLeft(partial, " \t")
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

const maxMarkerLevel = 3

func parseMarker(line string) (Section, bool) {
	trimmed := strings.TrimSpace(line)
	level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
	if level == 0 || level > maxMarkerLevel {
		return "", false
	}
	name := strings.TrimSpace(trimmed[level:])
	name = strings.Trim(name, "*_: ")
	switch Section(strings.ToLower(name)) {
	case SectionTitle:
		return SectionTitle, true
	case SectionSummary:
		return SectionSummary, true
	case SectionNotes:
		return SectionNotes, true
	case SectionReasoning:
		return SectionReasoning, true
	default:
		return "", false
	}
}

// Expansion accumulates section deltas into the final write-up.
type Expansion struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Notes     string `json:"notes"`
	Reasoning string `json:"reasoning"`
}

// Add appends deltas to their sections.
func (e *Expansion) Add(deltas ...SectionDelta) {
	for _, delta := range deltas {
		switch delta.Section {
		case SectionTitle:
			e.Title += delta.Text
		case SectionSummary:
			e.Summary += delta.Text
		case SectionNotes:
			e.Notes += delta.Text
		case SectionReasoning:
			e.Reasoning += delta.Text
		}
	}
}

// Trimmed returns a copy with surrounding whitespace removed from every section.
func (e *Expansion) Trimmed() Expansion {
	return Expansion{
		Title:     strings.TrimSpace(e.Title),
		Summary:   strings.TrimSpace(e.Summary),
		Notes:     strings.TrimSpace(e.Notes),
		Reasoning: strings.TrimSpace(e.Reasoning),
	}
}

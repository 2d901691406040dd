package parser

// LineKind distinguishes timestamped lyric lines from lines copied verbatim.
type LineKind int

const (
	// Passthrough lines (headers, ID tags, blank lines) are emitted unchanged.
	Passthrough LineKind = iota
	// Timestamped lines carry a leading [mm:ss.cc] bracket.
	Timestamped
)

func (k LineKind) String() string {
	if k == Timestamped {
		return "timestamped"
	}
	return "passthrough"
}

// LyricLine is one physical line of an .lrc document.
type LyricLine struct {
	Kind LineKind
	// Timestamp is the bracket content exactly as captured, e.g. "00:12.50".
	Timestamp string
	// Text is the trimmed remainder after the timestamp bracket.
	Text string
	// Raw is the original line, byte for byte.
	Raw string
}

// IsTimestamped reports whether the line matched the timestamp pattern.
func (l LyricLine) IsTimestamped() bool {
	return l.Kind == Timestamped
}

// Document is the ordered parse of a single lyric input.
type Document struct {
	// FilePath is empty for pasted or uploaded text.
	FilePath string
	// Lines holds exactly one entry per input line, in input order.
	Lines []LyricLine
	// Source is the decoded input text, line terminators included.
	Source string
}

// TimestampedCount returns the number of timestamped entries.
func (d *Document) TimestampedCount() int {
	n := 0
	for _, l := range d.Lines {
		if l.IsTimestamped() {
			n++
		}
	}
	return n
}

// RawText returns the decoded input. Documents built without a Source are
// rebuilt from their lines joined with "\n".
func (d *Document) RawText() string {
	if d.Source != "" {
		return d.Source
	}
	raw := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		raw[i] = l.Raw
	}
	return JoinLines(raw)
}

// Parser is implemented by lyric format parsers.
type Parser interface {
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Parse reads and parses a file.
	Parse(filePath string) (*Document, error)
	// ParseString parses already decoded text.
	ParseString(content string) *Document
}

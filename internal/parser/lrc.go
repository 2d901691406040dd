package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// TimestampSeparator joins the per-language translations of one line.
const TimestampSeparator = " / "

var timestampRe = regexp.MustCompile(`^\[(\d{2}:\d{2}\.\d{2,3})\](.*)`)

// LRCParser handles timestamped lyric files.
type LRCParser struct{}

func NewLRCParser() *LRCParser { return &LRCParser{} }

func (p *LRCParser) CanParse(ext string) bool {
	return strings.EqualFold(ext, ".lrc")
}

func (p *LRCParser) Parse(filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read lrc file: %w", err)
	}

	content, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}

	doc := p.ParseString(content)
	doc.FilePath = filePath
	return doc, nil
}

// ParseString never fails: lines that do not match the timestamp pattern
// become passthrough entries.
func (p *LRCParser) ParseString(content string) *Document {
	lines := SplitLines(content)
	doc := &Document{Lines: make([]LyricLine, 0, len(lines)), Source: content}
	for _, line := range lines {
		doc.Lines = append(doc.Lines, ParseLine(line))
	}
	return doc
}

// ParseLine classifies a single physical line.
func ParseLine(line string) LyricLine {
	m := timestampRe.FindStringSubmatch(line)
	if m == nil {
		return LyricLine{Kind: Passthrough, Raw: line}
	}
	return LyricLine{
		Kind:      Timestamped,
		Timestamp: m[1],
		Text:      strings.TrimSpace(m[2]),
		Raw:       line,
	}
}

// SplitLines splits on every Unicode line boundary: \n, \r\n, \r, \v, \f,
// \x1c-\x1e, U+0085, U+2028 and U+2029. A trailing terminator does not
// produce an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRuneInString(content[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, content[start:i])
		i += size
		if r == '\r' && i < len(content) && content[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}

// JoinLines is the inverse of SplitLines for terminator-free input.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// FormatTimestamped renders "[ts] t1 / t2 / ...".
func FormatTimestamped(timestamp string, texts []string) string {
	return "[" + timestamp + "] " + strings.Join(texts, TimestampSeparator)
}

// Decode converts uploaded bytes to text, dropping a leading UTF-8 BOM.
func Decode(data []byte) (string, error) {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

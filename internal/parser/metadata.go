package parser

import (
	"regexp"
	"strings"
)

var idTagRe = regexp.MustCompile(`^\[([A-Za-z#]+):(.*)\]\s*$`)

// Metadata returns ID tags such as [ar:Artist] or [ti:Title] keyed by their
// lowercased tag name. The tag lines themselves stay passthrough entries.
func (d *Document) Metadata() map[string]string {
	tags := make(map[string]string)
	for _, l := range d.Lines {
		if l.IsTimestamped() {
			continue
		}
		m := idTagRe.FindStringSubmatch(strings.TrimSpace(l.Raw))
		if m == nil {
			continue
		}
		tags[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
	}
	return tags
}

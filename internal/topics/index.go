// Package topics maps the course structure (unit, section) to the chunks
// whose text mentions the section's curated keywords.
package topics

import (
	"sort"
	"strings"
)

// Corpus is the read-only chunk view needed to build the map.
type Corpus interface {
	Len() int
	Lower(i int) string
}

// SectionRef selects one section of one unit.
type SectionRef struct {
	Unit    string `json:"unit"`
	Section string `json:"section"`
}

// SectionInfo is the listing form of a section.
type SectionInfo struct {
	Section string `json:"section"`
	Title   string `json:"title"`
}

// Topic is the listing form of a unit.
type Topic struct {
	Unit     string        `json:"unit"`
	Sections []SectionInfo `json:"sections"`
}

// Map is the immutable unit → section → chunk indices mapping.
type Map struct {
	meta   Metadata
	chunks map[string]map[string][]int
}

// Build matches every section's keywords against every chunk. A chunk is
// listed under a section when its lowercased text contains any lowercased
// keyword; it may appear under several sections and units.
func Build(meta Metadata, c Corpus) *Map {
	m := &Map{meta: meta, chunks: make(map[string]map[string][]int, len(meta))}
	for _, unit := range meta {
		secs, ok := m.chunks[unit.Unit]
		if !ok {
			secs = make(map[string][]int, len(unit.Sections))
			m.chunks[unit.Unit] = secs
		}
		for _, sec := range unit.Sections {
			keywords := lowerKeywords(sec.Keywords)
			ids := []int{}
			for i := 0; i < c.Len(); i++ {
				text := c.Lower(i)
				for _, kw := range keywords {
					if strings.Contains(text, kw) {
						ids = append(ids, i)
						break
					}
				}
			}
			secs[sec.Section] = ids
		}
	}
	return m
}

func lowerKeywords(kws []string) []string {
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Chunks returns the chunk indices of one section, or nil when unknown.
func (m *Map) Chunks(unit, section string) []int {
	return append([]int(nil), m.chunks[unit][section]...)
}

// Resolve unions the chunk indices of the selected sections. When no section
// is selected it unions every section of the selected units. Unknown units and
// sections are ignored. The result is sorted ascending.
func (m *Map) Resolve(units []string, sections []SectionRef) []int {
	set := make(map[int]struct{})
	if len(sections) > 0 {
		for _, ref := range sections {
			for _, i := range m.chunks[ref.Unit][ref.Section] {
				set[i] = struct{}{}
			}
		}
	} else {
		for _, u := range units {
			for _, ids := range m.chunks[u] {
				for _, i := range ids {
					set[i] = struct{}{}
				}
			}
		}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// List returns units and section titles in metadata order.
func (m *Map) List() []Topic {
	out := make([]Topic, 0, len(m.meta))
	for _, unit := range m.meta {
		t := Topic{Unit: unit.Unit, Sections: make([]SectionInfo, 0, len(unit.Sections))}
		for _, sec := range unit.Sections {
			t.Sections = append(t.Sections, SectionInfo{Section: sec.Section, Title: sec.Title})
		}
		out = append(out, t)
	}
	return out
}

// Units returns the unit names in metadata order.
func (m *Map) Units() []string {
	out := make([]string, len(m.meta))
	for i, unit := range m.meta {
		out[i] = unit.Unit
	}
	return out
}

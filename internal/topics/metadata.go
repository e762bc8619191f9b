package topics

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SectionMeta is the curated description of one section.
type SectionMeta struct {
	Section  string
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
}

// UnitMeta lists the sections of one unit in declaration order.
type UnitMeta struct {
	Unit     string
	Sections []SectionMeta
}

// Metadata is the ordered unit → section → {title, keywords} tree.
type Metadata []UnitMeta

// LoadMetadata reads topic metadata from a JSON or YAML file.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics %s: %w", path, err)
	}
	md, err := ParseMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("parse topics %s: %w", path, err)
	}
	return md, nil
}

// ParseMetadata decodes {unit: {section: {title, keywords}}}. Key order is
// kept as written, so listings follow the curator's layout.
func ParseMetadata(data []byte) (Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("topics root must be a mapping of units")
	}
	var md Metadata
	for i := 0; i+1 < len(root.Content); i += 2 {
		unitKey, unitVal := root.Content[i], root.Content[i+1]
		if unitVal.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("unit %q must map sections", unitKey.Value)
		}
		unit := UnitMeta{Unit: unitKey.Value}
		for j := 0; j+1 < len(unitVal.Content); j += 2 {
			secKey, secVal := unitVal.Content[j], unitVal.Content[j+1]
			var sec SectionMeta
			if err := secVal.Decode(&sec); err != nil {
				return nil, fmt.Errorf("unit %q section %q: %w", unitKey.Value, secKey.Value, err)
			}
			sec.Section = secKey.Value
			unit.Sections = append(unit.Sections, sec)
		}
		md = append(md, unit)
	}
	return md, nil
}

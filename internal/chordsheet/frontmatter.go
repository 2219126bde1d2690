package chordsheet

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// splitFrontmatter separates a leading YAML block fenced by "---" lines
// from the body. Keys keep their document order. Without a closing fence
// the whole text is the body. The returned offset is the number of lines
// consumed by the block.
func splitFrontmatter(lines []string) (Metadata, []string, int, error) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterFence {
		return nil, lines, 0, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterFence {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, lines, 0, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &doc); err != nil {
		return nil, nil, 0, fmt.Errorf("frontmatter: %w", err)
	}

	var meta Metadata
	if len(doc.Content) > 0 {
		m := doc.Content[0]
		if m.Kind != yaml.MappingNode {
			return nil, nil, 0, errors.New("frontmatter: expected a mapping")
		}
		for i := 0; i+1 < len(m.Content); i += 2 {
			key, val := m.Content[i].Value, m.Content[i+1]
			switch val.Kind {
			case yaml.ScalarNode:
				meta.Set(key, val.Value)
			case yaml.SequenceNode:
				items := make([]string, 0, len(val.Content))
				for _, item := range val.Content {
					items = append(items, item.Value)
				}
				meta.Set(key, strings.Join(items, ", "))
			}
		}
	}
	return meta, lines[end+1:], end + 1, nil
}

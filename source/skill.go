package source

import (
	"bufio"
	"bytes"
	"strings"
)

// SkillFileName marks a directory as a skill resource.
const SkillFileName = "SKILL.md"

// SkillDetector recognizes skill resources: trees carrying a SKILL.md
// file. The name derives from the source directory's base name and the
// description from the file's first Markdown heading.
type SkillDetector struct{}

var _ Detector = SkillDetector{}

// Name identifies the detector.
func (SkillDetector) Name() string {
	return "skill"
}

// Detect matches trees containing SKILL.md.
func (SkillDetector) Detect(src *Source) (*Detection, error) {
	content, ok := src.Files.Get(SkillFileName)
	if !ok {
		return nil, nil
	}

	return &Detection{
		Type:        "skill",
		Name:        BaseName(src.Origin),
		Description: firstHeading(content),
	}, nil
}

// firstHeading returns the text of the first Markdown heading, empty when
// there is none.
func firstHeading(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if trimmed := strings.TrimLeft(line, "#"); trimmed != line {
			return strings.TrimSpace(trimmed)
		}
	}
	return ""
}

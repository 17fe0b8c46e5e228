package source

import (
	"encoding/json"
	"fmt"

	"github.com/resourcex/resourcex"
)

// DefinitionFileName is the authoring metadata file recognized by the
// explicit detector.
const DefinitionFileName = "resource.json"

// DefinitionDetector recognizes trees carrying an explicit resource.json
// definition. It has the highest priority in the default chain.
type DefinitionDetector struct{}

var _ Detector = DefinitionDetector{}

// Name identifies the detector.
func (DefinitionDetector) Name() string {
	return "resource.json"
}

// Detect parses the resource.json definition when present. The definition
// file itself is excluded from the packed content.
func (DefinitionDetector) Detect(src *Source) (*Detection, error) {
	content, ok := src.Files.Get(DefinitionFileName)
	if !ok {
		return nil, nil
	}

	var def resourcex.Definition
	if err := json.Unmarshal(content, &def); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", DefinitionFileName, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", DefinitionFileName, err)
	}

	return &Detection{
		Type:               def.Type,
		Name:               def.Name,
		Tag:                def.Tag,
		Description:        def.Description,
		Author:             def.Author,
		License:            def.License,
		Keywords:           def.Keywords,
		Repository:         def.Repository,
		ExcludeFromContent: []string{DefinitionFileName},
	}, nil
}

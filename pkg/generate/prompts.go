package generate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the instruction texts sent to the model. Zero-valued
// fields fall back to the built-in defaults, so an override file only
// needs the prompts it wants to change.
type Prompts struct {
	SingleCode     string `yaml:"single_code"`
	SingleMarkdown string `yaml:"single_markdown"`
	StructureSys   string `yaml:"structure_system"`
	StructureUser  string `yaml:"structure_user"`
	SectionSys     string `yaml:"section_system"`
	SectionUser    string `yaml:"section_user"`
}

const singleCodePrompt = `You are a Python notebook cell generator.
Generate code content using this exact format:

<code>
` + "```python" + `
# Python code here
print('hello world')
` + "```" + `
</code>

Important: ALWAYS use these exact tags and formatting.`

const singleMarkdownPrompt = `You are a Python notebook cell generator.
Generate markdown content using this exact format:

<md>
# Section heading
Explanation text here
</md>

Important: ALWAYS use these exact tags and formatting.`

const structureSysPrompt = `You are a JSON generator. Return ONLY valid JSON without any additional text.`

const structureUserPrompt = `Generate a notebook structure for: %s

Return ONLY valid JSON in this EXACT format:
{
    "title": "Descriptive Title",
    "sections": [
        {
            "title": "Section Name",
            "cells": [
                {"type": "markdown", "content": "Section explanation"},
                {"type": "code", "purpose": "implementation"}
            ]
        }
    ]
}`

const sectionSysPrompt = `You are generating a section of a Jupyter notebook.
Follow these rules:
1. Start with a markdown cell explaining the section
2. Include all necessary imports at the start
3. Break code into logical chunks with markdown explanations
4. Include error handling in code cells
5. Add markdown cells explaining outputs

Use these exact tags:
<md>
# Markdown content
</md>

<code>
` + "```python" + `
# Code content
` + "```" + `
</code>`

const sectionUserPrompt = `Generate content for notebook section: %s

Use these exact tags for cells:
<md>
# Markdown content here
</md>

<code>
` + "```python" + `
# Python code here
` + "```" + `
</code>

Requirements:
1. Start with a markdown cell explaining the section
2. Include necessary imports and setup
3. Break code into logical chunks with explanations
4. Add comments to code
5. End with output explanation if applicable

Context from previous sections:
%s`

// DefaultPrompts returns the built-in prompt set
func DefaultPrompts() Prompts {
	return Prompts{
		SingleCode:     singleCodePrompt,
		SingleMarkdown: singleMarkdownPrompt,
		StructureSys:   structureSysPrompt,
		StructureUser:  structureUserPrompt,
		SectionSys:     sectionSysPrompt,
		SectionUser:    sectionUserPrompt,
	}
}

// LoadPrompts overlays a YAML override file on the defaults. A missing
// file is not an error; a malformed one is.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prompts, nil
		}
		return prompts, fmt.Errorf("read prompts file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return prompts, fmt.Errorf("parse prompts file: %w", err)
	}

	prompts.merge(override)
	return prompts, nil
}

func (p *Prompts) merge(override Prompts) {
	if override.SingleCode != "" {
		p.SingleCode = override.SingleCode
	}
	if override.SingleMarkdown != "" {
		p.SingleMarkdown = override.SingleMarkdown
	}
	if override.StructureSys != "" {
		p.StructureSys = override.StructureSys
	}
	if override.StructureUser != "" {
		p.StructureUser = override.StructureUser
	}
	if override.SectionSys != "" {
		p.SectionSys = override.SectionSys
	}
	if override.SectionUser != "" {
		p.SectionUser = override.SectionUser
	}
}

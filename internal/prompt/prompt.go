// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt builds the instruction text sent to the conversion model
// alongside the encoded document.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/docmorph/pkg/types"
)

// InstructionsHeading introduces user-supplied instructions in the prompt.
const InstructionsHeading = "Additional User Instructions:"

// conversionPromptTmpl lists the rules for every format regardless of which
// one is requested, so the model sees the same structure on every call.
var conversionPromptTmpl = template.Must(template.New("conversion").Parse(`You are an intelligent document conversion engine.
Analyze the attached file accurately.
Your task is to convert the content of this document into valid {{.Format}}.

Format Rules:
- If JSON: Return a clean JSON object representing the document structure (headers, paragraphs, tables).
- If CSV: Extract tabular data. If multiple tables exist, separate them with a blank line or focus on the main table.
- If Markdown: Use proper headers, lists, and bolding to match the document layout.
- If HTML: Generate semantic HTML5 content (body tags only, no head/html tags).
- If Summary: Provide a concise, bulleted executive summary of the document.

IMPORTANT: Return ONLY the converted content. Do not include markdown code blocks (like ` + "```json ... ```" + `) unless requested as part of the content itself. Do not add conversational text.`))

// Build renders the prompt for format. Non-empty instructions are appended
// verbatim after InstructionsHeading; empty instructions leave the base
// prompt untouched.
func Build(format types.ConversionFormat, instructions string) string {
	buf, err := renderPrompt(format)
	if err != nil {
		panic(err)
	}

	if instructions != "" {
		buf.WriteString("\n\n")
		buf.WriteString(InstructionsHeading)
		buf.WriteString(" ")
		buf.WriteString(instructions)
	}
	return buf.String()
}

// renderPrompt executes the conversion template for format. The template is
// fixed at compile time, so an error here is a programming error.
func renderPrompt(format types.ConversionFormat) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := conversionPromptTmpl.Execute(&buf, struct{ Format types.ConversionFormat }{Format: format}); err != nil {
		return nil, fmt.Errorf("rendering conversion prompt: %w", err)
	}
	return &buf, nil
}

package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/title_terms.md
var titleTermsPromptRaw string

// TitleTermsTemplate is the prompt used to extract vocabulary terms from a title.
var TitleTermsTemplate = template.Must(template.New("title_terms").Parse(titleTermsPromptRaw))

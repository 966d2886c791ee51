package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/xeipuuv/gojsonschema"

	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/vocab"
)

var titleTermsValidator = mustSchema(titleTermsSchema)

func mustSchema(schema map[string]any) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("ai: compile schema: %v", err))
	}
	return s
}

// LLMExtractor implements extract.Extractor by asking an LLM which
// vocabulary terms a title names. Its answer is restricted to the vocabulary
// and passed through the same disambiguation as keyword matching, so the
// result obeys the keyword extractor's contract. Level always comes from the
// rule-based classifier.
type LLMExtractor struct {
	provider     LLMProvider
	matcher      *extract.Matcher
	technologies []string
	roles        []string
	tmpl         *template.Template
	fallback     extract.Extractor
	logger       *slog.Logger
}

// NewLLMExtractor creates an extractor over v. When fallback is non-nil it
// is used for any title the LLM call fails on.
func NewLLMExtractor(provider LLMProvider, v *vocab.Vocabulary, tmpl *template.Template, fallback extract.Extractor, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		provider:     provider,
		matcher:      extract.NewMatcher(v),
		technologies: v.Technologies(),
		roles:        v.Roles(),
		tmpl:         tmpl,
		fallback:     fallback,
		logger:       logger,
	}
}

// Extract returns the technologies and roles the LLM found in title.
func (e *LLMExtractor) Extract(ctx context.Context, title string) (extract.Extraction, error) {
	if strings.TrimSpace(title) == "" {
		return extract.Extraction{Level: extract.Classify(title)}, nil
	}

	techs, roles, err := e.complete(ctx, title)
	if err != nil {
		if e.fallback == nil || ctx.Err() != nil {
			return extract.Extraction{}, err
		}
		e.logger.Warn("llm extraction failed, using keyword matching", "title", title, "error", err)
		return e.fallback.Extract(ctx, title)
	}

	techs, roles = e.matcher.Disambiguate(techs, roles)
	return extract.Extraction{
		Technologies: techs,
		Roles:        roles,
		Level:        extract.Classify(title),
	}, nil
}

// titleTerms is the JSON shape returned by the LLM (matches titleTermsSchema).
type titleTerms struct {
	Technologies []string `json:"technologies"`
	Roles        []string `json:"roles"`
}

func (e *LLMExtractor) complete(ctx context.Context, title string) (techs, roles []string, err error) {
	var prompt bytes.Buffer
	if err := e.tmpl.Execute(&prompt, struct {
		Title        string
		Technologies []string
		Roles        []string
	}{title, e.technologies, e.roles}); err != nil {
		return nil, nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, prompt.String())
	if err != nil {
		return nil, nil, fmt.Errorf("llm complete: %w", err)
	}

	terms, err := parseTitleTerms(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse llm terms: %w", err)
	}
	return terms.Technologies, terms.Roles, nil
}

func parseTitleTerms(raw string) (titleTerms, error) {
	result, err := titleTermsValidator.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return titleTerms{}, err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return titleTerms{}, fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var t titleTerms
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return titleTerms{}, fmt.Errorf("unmarshal terms JSON: %w", err)
	}
	return t, nil
}

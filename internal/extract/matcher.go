package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/vocab"
)

// Extraction is the structured signal pulled out of one job title.
type Extraction struct {
	Technologies []string
	Roles        []string
	Level        model.Level
}

// Extractor turns a job title into an Extraction. The keyword extractor is the
// reference implementation; alternatives (e.g. LLM-backed) must honour the
// same contract: vocabulary terms only, disjoint sets, one level.
type Extractor interface {
	Extract(ctx context.Context, title string) (Extraction, error)
}

type term struct {
	canonical string
	lower     string
	pattern   *regexp.Regexp
}

// Matcher holds precompiled whole-word patterns for every vocabulary term.
// It is immutable and safe for concurrent use.
type Matcher struct {
	technologies []term
	roles        []term
}

// NewMatcher compiles the vocabulary into a Matcher.
func NewMatcher(v *vocab.Vocabulary) *Matcher {
	return &Matcher{
		technologies: compileTerms(v.Technologies()),
		roles:        compileTerms(v.Roles()),
	}
}

func compileTerms(terms []string) []term {
	out := make([]term, 0, len(terms))
	for _, t := range terms {
		out = append(out, term{
			canonical: t,
			lower:     strings.ToLower(t),
			pattern:   wholeWord(t),
		})
	}
	return out
}

// wholeWord matches t case-insensitively when it is not glued to a letter,
// digit or underscore on either side. The boundary is checked outside the
// term so names like "C++" or ".NET" work, which \b cannot express.
func wholeWord(t string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN_])` + regexp.QuoteMeta(t) + `(?:[^\pL\pN_]|$)`)
}

// Extract returns the technology and role terms found in title, after
// cross-category disambiguation. Both results use the vocabulary's casing and order.
func (m *Matcher) Extract(title string) (technologies, roles []string) {
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}
	techHits := matchTerms(m.technologies, title)
	roleHits := matchTerms(m.roles, title)
	return disambiguate(techHits, roleHits)
}

func matchTerms(terms []term, title string) []term {
	var hits []term
	for _, t := range terms {
		if t.pattern.MatchString(title) {
			hits = append(hits, t)
		}
	}
	return hits
}

// disambiguate evicts a role contained in any technology hit and a technology
// contained in any role hit. Both checks look at the original hit sets, so a
// term present in both categories is dropped from both.
func disambiguate(techHits, roleHits []term) (technologies, roles []string) {
	for _, t := range techHits {
		if !containedInAny(t, roleHits) {
			technologies = append(technologies, t.canonical)
		}
	}
	for _, r := range roleHits {
		if !containedInAny(r, techHits) {
			roles = append(roles, r.canonical)
		}
	}
	return technologies, roles
}

func containedInAny(t term, others []term) bool {
	for _, o := range others {
		if strings.Contains(o.lower, t.lower) {
			return true
		}
	}
	return false
}

// Extract is a convenience wrapper that compiles v on every call. Use a
// Matcher when classifying more than a handful of titles.
func Extract(title string, v *vocab.Vocabulary) (technologies, roles []string) {
	return NewMatcher(v).Extract(title)
}

// KeywordExtractor is the deterministic Extractor: whole-word vocabulary
// matching plus pattern-based level classification. It never fails.
type KeywordExtractor struct {
	matcher *Matcher
}

// NewKeywordExtractor returns an Extractor backed by a compiled Matcher.
func NewKeywordExtractor(v *vocab.Vocabulary) *KeywordExtractor {
	return &KeywordExtractor{matcher: NewMatcher(v)}
}

// Extract implements Extractor.
func (e *KeywordExtractor) Extract(_ context.Context, title string) (Extraction, error) {
	techs, roles := e.matcher.Extract(title)
	return Extraction{
		Technologies: techs,
		Roles:        roles,
		Level:        Classify(title),
	}, nil
}

// Disambiguate applies the cross-category eviction rule to candidate sets
// produced elsewhere (for example by a model), restricted to vocabulary terms.
func (m *Matcher) Disambiguate(techCandidates, roleCandidates []string) (technologies, roles []string) {
	return disambiguate(pick(m.technologies, techCandidates), pick(m.roles, roleCandidates))
}

// pick returns the vocabulary terms named in candidates (case-insensitive),
// in vocabulary order, each at most once.
func pick(terms []term, candidates []string) []term {
	want := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		want[strings.ToLower(strings.TrimSpace(c))] = true
	}
	var out []term
	for _, t := range terms {
		if want[t.lower] {
			out = append(out, t)
		}
	}
	return out
}

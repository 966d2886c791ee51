package vocab

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobsignal/internal/model"
)

//go:embed schema.json
var schemaRaw string

// documentSchema is compiled once at package init; a broken embedded schema is a build defect.
var documentSchema = mustCompileSchema(schemaRaw)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("vocab: compile schema: %v", err))
	}
	return s
}

// Vocabulary holds the closed keyword sets titles are matched against.
// It is immutable once built; accessors return copies.
type Vocabulary struct {
	technologies []string
	roles        []string
}

// document is the typed view of a vocabulary file once it passed schema validation.
type document struct {
	Technologies []string `yaml:"technologies"`
	Roles        []string `yaml:"roles"`
	TechRoles    []string `yaml:"tech_roles"`
}

// Load reads a YAML or JSON vocabulary file. Any problem with the file is
// reported as *model.ConfigError.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: fmt.Errorf("read vocabulary: %w", err)}
	}
	v, err := Parse(data)
	if err != nil {
		var cfgErr *model.ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	return v, nil
}

// Parse builds a Vocabulary from raw YAML or JSON bytes.
func Parse(data []byte) (*Vocabulary, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, &model.ConfigError{Err: fmt.Errorf("parse vocabulary: %w", err)}
	}

	result, err := documentSchema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return nil, &model.ConfigError{Err: fmt.Errorf("validate vocabulary: %w", err)}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &model.ConfigError{Err: fmt.Errorf("invalid vocabulary: %s", strings.Join(msgs, "; "))}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigError{Err: fmt.Errorf("decode vocabulary: %w", err)}
	}

	roles := append(append([]string{}, doc.Roles...), doc.TechRoles...)
	return New(doc.Technologies, roles)
}

// New builds a Vocabulary from in-memory term lists. Entries are trimmed and
// deduplicated case-insensitively, keeping the first spelling seen.
func New(technologies, roles []string) (*Vocabulary, error) {
	techs, err := normalize("technologies", technologies)
	if err != nil {
		return nil, err
	}
	rs, err := normalize("roles", roles)
	if err != nil {
		return nil, err
	}
	return &Vocabulary{technologies: techs, roles: rs}, nil
}

func normalize(field string, terms []string) ([]string, error) {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for i, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, &model.ConfigError{Err: fmt.Errorf("%s[%d]: empty term", field, i)}
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out, nil
}

// Technologies returns the technology terms in file order.
func (v *Vocabulary) Technologies() []string {
	return append([]string(nil), v.technologies...)
}

// Roles returns the role terms in file order.
func (v *Vocabulary) Roles() []string {
	return append([]string(nil), v.roles...)
}

package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/vocab"
)

// mockProvider is a stub LLMProvider for testing.
type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New(
		[]string{"Python", "Java", "JavaScript", "Azure DevOps"},
		[]string{"Backend", "DevOps", "Data Engineer"},
	)
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	return v
}

func newTestExtractor(t *testing.T, p LLMProvider, fallback extract.Extractor) *LLMExtractor {
	return NewLLMExtractor(p, testVocab(t), TitleTermsTemplate, fallback, discardLogger())
}

func TestExtract_UsesLLMTerms(t *testing.T) {
	p := &mockProvider{response: `{"technologies":["python","Kotlin"],"roles":["Backend"]}`}
	e := newTestExtractor(t, p, nil)

	got, err := e.Extract(context.Background(), "Senior Backend Developer (Python)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Kotlin is not in the vocabulary; casing follows the vocabulary.
	if !reflect.DeepEqual(got.Technologies, []string{"Python"}) {
		t.Errorf("Technologies = %v", got.Technologies)
	}
	if !reflect.DeepEqual(got.Roles, []string{"Backend"}) {
		t.Errorf("Roles = %v", got.Roles)
	}
	if got.Level != model.LevelSenior {
		t.Errorf("Level = %q, want Senior", got.Level)
	}
}

func TestExtract_DisambiguatesLLMTerms(t *testing.T) {
	p := &mockProvider{response: `{"technologies":["Azure DevOps"],"roles":["DevOps"]}`}
	e := newTestExtractor(t, p, nil)

	got, err := e.Extract(context.Background(), "Azure DevOps Engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.Technologies, []string{"Azure DevOps"}) || len(got.Roles) != 0 {
		t.Errorf("got techs=%v roles=%v, want role evicted", got.Technologies, got.Roles)
	}
}

func TestExtract_PromptListsVocabularyAndTitle(t *testing.T) {
	p := &mockProvider{response: `{"technologies":[],"roles":[]}`}
	e := newTestExtractor(t, p, nil)

	if _, err := e.Extract(context.Background(), "QA Analyst"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(p.prompts))
	}
	for _, want := range []string{"- JavaScript", "- Data Engineer", "Job title: QA Analyst"} {
		if !strings.Contains(p.prompts[0], want) {
			t.Errorf("prompt missing %q:\n%s", want, p.prompts[0])
		}
	}
}

func TestExtract_EmptyTitleSkipsLLM(t *testing.T) {
	p := &mockProvider{}
	got, err := newTestExtractor(t, p, nil).Extract(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.prompts) != 0 {
		t.Error("provider should not be called for an empty title")
	}
	if got.Level != model.LevelUnknown {
		t.Errorf("Level = %q, want Unknown", got.Level)
	}
}

func TestExtract_ProviderErrorWithoutFallback(t *testing.T) {
	e := newTestExtractor(t, &mockProvider{err: errors.New("network error")}, nil)
	if _, err := e.Extract(context.Background(), "Java Developer"); err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestExtract_ProviderErrorFallsBack(t *testing.T) {
	v := testVocab(t)
	fallback := extract.NewKeywordExtractor(v)
	e := NewLLMExtractor(&mockProvider{err: errors.New("network error")}, v, TitleTermsTemplate, fallback, discardLogger())

	got, err := e.Extract(context.Background(), "Junior Java Developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got.Technologies, []string{"Java"}) || got.Level != model.LevelJunior {
		t.Errorf("unexpected fallback extraction: %+v", got)
	}
}

func TestParseTitleTerms(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"technologies":["Go"],"roles":["Backend"]}`, false},
		{"empty arrays", `{"technologies":[],"roles":[]}`, false},
		{"missing roles", `{"technologies":["Go"]}`, true},
		{"wrong type", `{"technologies":"Go","roles":[]}`, true},
		{"extra field", `{"technologies":[],"roles":[],"level":"Senior"}`, true},
		{"not json", `technologies: Go`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTitleTerms(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseTitleTerms(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

package filter

import (
	"strings"

	"github.com/amishk599/jobsignal/internal/model"
)

// TitleKeywordFilter keeps listings whose title contains any include keyword
// and none of the exclude keywords. Matching is a case-insensitive substring
// test. An empty include list keeps everything not excluded.
type TitleKeywordFilter struct {
	include []string
	exclude []string
}

var _ model.RecordFilter = (*TitleKeywordFilter)(nil)

// NewTitleKeywordFilter returns a filter over the given keyword lists.
func NewTitleKeywordFilter(include, exclude []string) *TitleKeywordFilter {
	return &TitleKeywordFilter{
		include: lowerAll(include),
		exclude: lowerAll(exclude),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Match returns true if the record's title passes both keyword lists.
func (f *TitleKeywordFilter) Match(rec model.RawJobRecord) bool {
	title := strings.ToLower(rec.Title)

	for _, kw := range f.exclude {
		if strings.Contains(title, kw) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

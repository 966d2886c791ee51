package extract

import (
	"regexp"

	"github.com/amishk599/jobsignal/internal/model"
)

// levelRules are evaluated in order; the first match wins.
var levelRules = []struct {
	level   model.Level
	pattern *regexp.Regexp
}{
	{model.LevelJunior, regexp.MustCompile(`(?i)\bjunior\b`)},
	{model.LevelMid, regexp.MustCompile(`(?i)\bmid[-\s]*level\b`)},
	{model.LevelSenior, regexp.MustCompile(`(?i)\bsenior\b`)},
}

// Classify returns the seniority level a title advertises, or LevelUnknown.
func Classify(title string) model.Level {
	for _, r := range levelRules {
		if r.pattern.MatchString(title) {
			return r.level
		}
	}
	return model.LevelUnknown
}

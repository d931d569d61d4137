package runtime

import (
	"strings"
	"unicode"

	"github.com/aretw0/concierge/pkg/domain"
)

type route struct {
	flowID string
	words  []string
}

// Router matches free text to flow entry points.
// A keyword phrase matches when its words appear contiguously in the input,
// ignoring case and punctuation. A one-word keyword must be the whole input, so
// "case" opens a case but "just in case" does not. The longest matching keyword
// wins; ties go to catalog order.
type Router struct {
	routes []route
}

// NewRouter indexes the keywords of the given flows.
func NewRouter(flows []domain.Flow) *Router {
	r := &Router{}
	for _, f := range flows {
		for _, kw := range f.Keywords {
			words := tokenize(kw)
			if len(words) == 0 {
				continue
			}
			r.routes = append(r.routes, route{flowID: f.ID, words: words})
		}
	}
	return r
}

// Match returns the ID of the flow the text enters, if any.
func (r *Router) Match(text string) (string, bool) {
	input := tokenize(text)
	if len(input) == 0 {
		return "", false
	}
	best, bestLen := "", 0
	for _, rt := range r.routes {
		if len(rt.words) <= bestLen {
			continue
		}
		if len(rt.words) == 1 && len(input) != 1 {
			continue
		}
		if containsRun(input, rt.words) {
			best, bestLen = rt.flowID, len(rt.words)
		}
	}
	return best, bestLen > 0
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsRun(haystack, needle []string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, w := range needle {
			if haystack[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

package inspection

import (
	"cmp"
	"slices"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jward/mlens/internal/scope"
)

// Completion is one visible name that matches a typed prefix.
type Completion struct {
	Label    string
	Kind     scope.ItemKind
	Distance int
}

// Completions ranks the bound names in scope against prefix, closest match
// first and ties by name. Names recorded only because the cursor sits on
// them are left out. An empty prefix matches every name.
func Completions(inspected *Inspected, prefix string) []Completion {
	if inspected == nil {
		return nil
	}
	var labels []string
	for _, key := range inspected.Scope.Keys() {
		if inspected.Scope[key].Kind() != scope.ItemUndefined {
			labels = append(labels, key)
		}
	}

	ranks := fuzzy.RankFindFold(prefix, labels)
	out := make([]Completion, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, Completion{
			Label:    r.Target,
			Kind:     inspected.Scope[r.Target].Kind(),
			Distance: r.Distance,
		})
	}
	slices.SortFunc(out, func(a, b Completion) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.Label, b.Label))
	})
	return out
}

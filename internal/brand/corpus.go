package brand

import (
	"sort"

	"github.com/safescan/recall-cli/internal/normalize"
)

// entry is one corpus brand with its precomputed canonical form.
type entry struct {
	name string
	norm string
}

// corpus is an immutable snapshot of the merged brand list. Entries are
// deduplicated on canonical form (static list wins over user additions)
// and held sorted by canonical form, then display name, so equal-score
// ties always resolve to the same entry.
type corpus struct {
	entries []entry
	byNorm  map[string]int
}

func buildCorpus(static, user []string) *corpus {
	c := &corpus{byNorm: make(map[string]int, len(static)+len(user))}

	add := func(names []string) {
		for _, name := range names {
			n := normalize.Brand(name)
			if n == "" {
				continue
			}
			if _, ok := c.byNorm[n]; ok {
				continue
			}
			c.byNorm[n] = -1 // placeholder until sorted
			c.entries = append(c.entries, entry{name: name, norm: n})
		}
	}
	add(static)
	add(user)

	sort.Slice(c.entries, func(i, j int) bool {
		if c.entries[i].norm != c.entries[j].norm {
			return c.entries[i].norm < c.entries[j].norm
		}
		return c.entries[i].name < c.entries[j].name
	})
	for i, e := range c.entries {
		c.byNorm[e.norm] = i
	}
	return c
}

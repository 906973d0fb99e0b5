package view

import (
	"github.com/disiqueira/gotree/v3"

	"github.com/starford/luhmann/internal/luhmann"
	"github.com/starford/luhmann/internal/navigator"
)

// Tree renders files as a hierarchy keyed by their Luhmann IDs. IDs whose
// parent has no file get a placeholder node labelled with the bare ID.
// Files without an ID are skipped.
func Tree(g *luhmann.Grammar, f navigator.Formatter, rootLabel string, files []string) string {
	root := gotree.New(rootLabel)
	nodes := make(map[string]gotree.Tree)

	var parentOf func(id luhmann.ID) gotree.Tree
	parentOf = func(id luhmann.ID) gotree.Tree {
		if id.Depth() <= 1 {
			return root
		}
		p := id.Parent()
		if n, ok := nodes[p.String()]; ok {
			return n
		}
		n := parentOf(p).Add(g.Format(p))
		nodes[p.String()] = n
		return n
	}

	// Parents sort before their children, so a real parent is always
	// registered before a placeholder would be needed.
	for _, file := range g.SortFiles(files) {
		id, ok := g.ExtractFromFilename(file)
		if !ok {
			continue
		}
		n := parentOf(id).Add(f.Format(file))
		if _, ok := nodes[id.String()]; !ok {
			nodes[id.String()] = n
		}
	}
	return root.Print()
}

package mcpserver

import (
	"fmt"

	"github.com/starford/luhmann/internal/luhmann"
)

// idFormatContract describes the note naming scheme to LLM consumers. The
// three %s verbs are filled with the example IDs in the configured grammar.
const idFormatContract = `# Luhmann ID Naming Contract

Every note in the vault is a Markdown file named

    <primary id> <luhmann id> <title>.md

e.g. ` + "`" + `202012091130 %s Slip boxes.md` + "`" + `.

## Primary ID

- A timestamp assigned when the note is created. It never changes.
- Other notes link to it as ` + "`" + `[[202012091130]]` + "`" + `.

## Luhmann ID

- Optional. A note without one is "unfiled" and does not appear in the index.
- Segments are separated by the delimiter and wrapped in prefix/postfix, e.g. %s.
- The parent of an ID is the ID with its last segment removed.
- New children alternate numbers and letters: under %s the first child is
  numbered, under a three-segment ID it is lettered.
- Never pick an ID by hand. Use the ` + "`" + `luhmann_create_note` + "`" + ` tool with the
  parent ID and the server allocates the next free child.

## Index order

Notes sort by the raw Luhmann ID as a string, so ` + "`" + `1,10` + "`" + ` sorts
before ` + "`" + `1,2` + "`" + `.

## Navigation commands

- ` + "`" + `top` + "`" + `: top-level notes only.
- ` + "`" + `all` + "`" + `: every filed note.
- ` + "`" + `forward` + "`" + `: the cursor note, its siblings and its children.
- ` + "`" + `back` + "`" + `: one level up from the first line.
- ` + "`" + `unfold` + "`" + `: the whole branch under the cursor note's root.
- ` + "`" + `depth` + "`" + `: keep only IDs with exactly n segments.
- ` + "`" + `current` + "`" + `: every filed note, cursor on the active note.
`

// IDFormatContract renders the naming contract for the grammar g.
func IDFormatContract(g *luhmann.Grammar) string {
	example := g.Format(g.NewID("1", "2", "a"))
	return fmt.Sprintf(idFormatContract, example, example, g.Format(g.NewID("1", "2")))
}

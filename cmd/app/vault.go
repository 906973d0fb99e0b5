package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/luhmann/internal"
	"github.com/starford/luhmann/internal/navigator"
	"github.com/starford/luhmann/internal/noteservice"
	"github.com/starford/luhmann/internal/view"
)

type workspaceAction func(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error

// withWorkspace opens the configured vault around fn.
func withWorkspace(fn workspaceAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ws, err := internal.Open(internal.WithConfig(cfg))
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(ctx, cmd, ws)
	}
}

func printView(cmd *cli.Command, b *view.Buffer) error {
	return view.Print(cmd.Root().Writer, b, view.DefaultStyles())
}

func intArg(cmd *cli.Command, name string) (int, error) {
	s := cmd.Args().First()
	if s == "" {
		return 0, fmt.Errorf("%s: argument %s is required", cmd.Name, name)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s must be a number, got %q", cmd.Name, name, s)
	}
	return n, nil
}

func navigate(c navigator.Command) workspaceAction {
	return func(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
		b, err := ws.Service.Navigate(ctx, cmd.String("view"), c, 0)
		if err != nil {
			return err
		}
		return printView(cmd, b)
	}
}

func runDepth(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	n, err := intArg(cmd, "N")
	if err != nil {
		return err
	}
	b, err := ws.Service.Navigate(ctx, cmd.String("view"), navigator.CommandDepth, n)
	if err != nil {
		return err
	}
	return printView(cmd, b)
}

func runCursor(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	n, err := intArg(cmd, "N")
	if err != nil {
		return err
	}
	b, err := ws.Service.SetCursor(ctx, cmd.String("view"), n)
	if err != nil {
		return err
	}
	return printView(cmd, b)
}

func runShow(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	b, err := ws.Service.View(ctx, cmd.String("view"))
	if err != nil {
		return err
	}
	return printView(cmd, b)
}

func runOpen(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	note, b, err := ws.Service.Open(ctx, cmd.String("view"), query)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, note.Path)
	return printView(cmd, b)
}

func runCandidates(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	groups, err := ws.Service.Candidates(ctx, strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}
	out := cmd.Root().Writer
	header := view.DefaultStyles().Header
	for _, g := range groups {
		fmt.Fprintln(out, header.Render(g.Root))
		for _, c := range g.Candidates {
			fmt.Fprintln(out, "  "+c.Label)
		}
	}
	return nil
}

func runNew(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	note, err := ws.Service.CreateNote(ctx, noteservice.CreateNoteInput{
		Parent: cmd.String("parent"),
		Title:  cmd.String("title"),
		Body:   cmd.String("body"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, note.Path)
	return nil
}

func runAssign(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("assign: expected PATH and ID")
	}
	note, err := ws.Service.AssignID(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, note.Path)
	return nil
}

func runSearch(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("search: QUERY is required")
	}
	results, err := ws.Service.Search(ctx, query, cmd.String("branch"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	out := cmd.Root().Writer
	for _, r := range results {
		fmt.Fprintf(out, "%s\t%s\n", r.Path, strings.Join(strings.Fields(r.Snippet), " "))
	}
	return nil
}

func runSync(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	st, err := ws.Service.Sync(ctx)
	if err != nil {
		return err
	}
	notes, err := ws.Service.Index(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "indexed %d, removed %d, unchanged %d, failed %d; %d notes carry a Luhmann ID\n",
		st.Indexed, st.Removed, st.Unchanged, st.Failed, len(notes))
	return nil
}

func runIndex(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	notes, err := ws.Service.Index(ctx)
	if err != nil {
		return err
	}
	f := ws.Service.Formatter()
	for _, n := range notes {
		fmt.Fprintln(cmd.Root().Writer, f.Format(n.Path))
	}
	return nil
}

func runTree(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	out, err := ws.Service.Tree(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.Root().Writer, out)
	return nil
}

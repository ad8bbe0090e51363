package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/azyu/chapterstudio/internal/catalog"
	"github.com/azyu/chapterstudio/internal/export"
	"github.com/azyu/chapterstudio/internal/glossary"
	"github.com/azyu/chapterstudio/internal/session"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "List chapters, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		metas, err := application.Catalog.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list chapters: %w", err)
		}
		if len(metas) == 0 {
			fmt.Println("No chapters yet. Run 'chapterstudio generate' to write one.")
			return nil
		}
		return printChapters(cmd.OutOrStdout(), metas)
	},
}

func printChapters(w io.Writer, metas []types.ChapterMeta) error {
	t := newTable("ID", "TONE", "POV", "SUMMARY")
	for _, m := range metas {
		t.Row(m.ID, m.Tone, m.POV, catalog.Preview(m, 60))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderHeader(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate chapter variants",
	Long: `Generate chapter variants from a brief. Without --summary an
interactive form asks for the brief.`,
	Args: cobra.NoArgs,
	RunE: runGenerateCmd,
}

func runGenerateCmd(cmd *cobra.Command, args []string) error {
	req := types.GenerationRequest{}
	req.Summary, _ = cmd.Flags().GetString("summary")
	req.Tone, _ = cmd.Flags().GetString("tone")
	req.POV, _ = cmd.Flags().GetString("pov")
	req.WordCount, _ = cmd.Flags().GetString("word-count")
	req.MustInclude, _ = cmd.Flags().GetString("must-include")
	pick, _ := cmd.Flags().GetInt("select")

	if strings.TrimSpace(req.Summary) == "" {
		if err := briefForm(&req).Run(); err != nil {
			return fmt.Errorf("brief form failed: %w", err)
		}
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	fmt.Println("Generating variants...")
	if err := application.Session.Generate(ctx, application.Backend, req); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	s := application.Session
	fmt.Printf("Chapter %s\n\n", s.ChapterID())
	for i, v := range s.Variants() {
		fmt.Printf("--- Variant %d ---\n%s\n\n", i+1, v)
	}

	if pick == 0 {
		fmt.Printf("Run 'chapterstudio open' to select and edit a variant of %s.\n", s.ChapterID())
		return nil
	}
	if err := selectAndSave(ctx, application.Session, application.Backend, pick-1); err != nil {
		return err
	}
	fmt.Printf("Variant %d selected and saved.\n", pick)
	return nil
}

func briefForm(req *types.GenerationRequest) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("What happens in this chapter?").
				Value(&req.Summary).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("summary is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Tone").
				Placeholder("grim, hopeful, tense...").
				Value(&req.Tone),
			huh.NewInput().
				Title("Point of view").
				Value(&req.POV),
			huh.NewInput().
				Title("Word count").
				Placeholder("800").
				Value(&req.WordCount),
			huh.NewInput().
				Title("Must include").
				Value(&req.MustInclude),
		),
	)
}

var exportCmd = &cobra.Command{
	Use:   "export <chapter-id>",
	Short: "Export a chapter's final text as Markdown or HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		formatFlag, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		format := export.FormatMarkdown
		switch {
		case formatFlag != "":
			f, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			format = f
		case out != "":
			format = export.FormatForPath(out)
		}

		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx := cmd.Context()
		ch, err := application.Backend.Chapter(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load chapter %s: %w", id, err)
		}

		// The summary only titles the document; a failed listing is fine.
		var meta *types.ChapterMeta
		if metas, err := application.Catalog.ListAll(ctx); err == nil {
			for i := range metas {
				if metas[i].ID == id {
					meta = &metas[i]
					break
				}
			}
		}

		doc, err := export.NewDocument(*ch, meta)
		if err != nil {
			return err
		}
		if out == "" {
			return export.Render(cmd.OutOrStdout(), doc, format)
		}
		if err := export.WriteFile(out, doc, format); err != nil {
			return err
		}
		fmt.Printf("Exported %s to %s\n", id, out)
		return nil
	},
}

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Work with glossary terms",
}

var glossaryAnnotateCmd = &cobra.Command{
	Use:   "annotate <text>",
	Short: "Show which words of a text link to glossary terms",
	Long: `Annotate splits text on whitespace and links every word whose
punctuation-trimmed, case-folded form matches a glossary term. Use '-' to
read the text from stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}

		application, err := newApp()
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Glossary.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load glossary: %w", err)
		}
		return printTokens(cmd.OutOrStdout(), glossary.Tokens(text, application.Glossary.Snapshot()))
	},
}

func printTokens(w io.Writer, tokens []glossary.Token) error {
	t := newTable("POS", "WORD", "TERM", "MEANING")
	for _, tok := range tokens {
		t.Row(strconv.Itoa(tok.Position), tok.Text, tok.Term, tok.Meaning)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// selectAndSave selects variant i and saves it as the chapter's text. A
// failure to record the selection is reported but does not stop the save.
func selectAndSave(ctx context.Context, s *session.Session, b session.Backend, i int) error {
	variants := s.Variants()
	if i < 0 || i >= len(variants) {
		return fmt.Errorf("--select must be between 1 and %d", len(variants))
	}

	if err := s.Select(ctx, b, variants[i]); err != nil {
		if !session.IsWarning(err) {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := s.Save(ctx, b); err != nil {
		return fmt.Errorf("failed to save chapter: %w", err)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"novel_crafter/contentcontrol"
	"novel_crafter/processor"
)

var (
	checkJSON  bool
	checkPlain bool
)

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Report grammar, style and character-name findings for a manuscript",
	Long: `Runs the full analysis pipeline over FILE ("-" reads standard input) and
prints a report. The file is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var namesCmd = &cobra.Command{
	Use:   "names FILE",
	Short: "List likely character names and their pronouns",
	Args:  cobra.ExactArgs(1),
	RunE:  runNames,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the processing result as JSON")
	checkCmd.Flags().BoolVar(&checkPlain, "plain", false, "print the markdown report without terminal styling")
	namesCmd.Flags().BoolVar(&checkJSON, "json", false, "print the gate result as JSON")
	namesCmd.Flags().BoolVar(&checkPlain, "plain", false, "print the markdown report without terminal styling")
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	res := newProcessor(cfg, logger).ProcessText(text)
	if checkJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return printMarkdown(cmd.OutOrStdout(), checkReport(filepath.Base(args[0]), res))
}

func runNames(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	res := newProcessor(cfg, logger).ProcessCharacterNames(text, nil)
	if checkJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Characters in %s\n\n", filepath.Base(args[0]))
	writeNames(&b, res.DetectedNames)
	return printMarkdown(cmd.OutOrStdout(), b.String())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMarkdown(w io.Writer, md string) error {
	if checkPlain {
		_, err := io.WriteString(w, md)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// checkReport renders a processing result as markdown.
func checkReport(name string, res *processor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Manuscript check: %s\n\n", name)
	if res.FallbackMode {
		fmt.Fprintf(&b, "Processing failed, the text was left unchanged.\n\n> %s\n", res.Error)
		return b.String()
	}

	var grammarCount, styleCount int
	for _, s := range res.Suggestions {
		if s.Type == processor.SuggestionStyleRepetition {
			styleCount++
		} else {
			grammarCount++
		}
	}
	fmt.Fprintf(&b, "**%d** paragraphs, **%d** grammar issues, **%d** style notes, **%d** possible characters.\n\n",
		len(res.PreservedFormatting.NonEmptyParagraphs()), grammarCount, styleCount, len(res.DetectedNames))

	b.WriteString("## Grammar\n\n")
	if len(res.GrammarErrors) == 0 {
		b.WriteString("No issues found.\n\n")
	} else {
		b.WriteString("| Offset | Type | Text | Suggestion | Confidence |\n|---:|---|---|---|---:|\n")
		for _, e := range res.GrammarErrors {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %.1f |\n",
				e.Position, e.Type, cell(e.Original), cell(e.Suggestion), e.Confidence)
		}
		b.WriteString("\n")
	}

	if styleCount > 0 {
		b.WriteString("## Style\n\n")
		for _, s := range res.Suggestions {
			if s.Type == processor.SuggestionStyleRepetition {
				fmt.Fprintf(&b, "- %s\n", s.Suggestion)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Characters\n\n")
	writeNames(&b, res.DetectedNames)
	return b.String()
}

func writeNames(b *strings.Builder, names []contentcontrol.DetectedName) {
	if len(names) == 0 {
		b.WriteString("No likely character names found.\n")
		return
	}
	b.WriteString("| Name | Occurrences | Pronouns |\n|---|---:|---|\n")
	for _, n := range names {
		p := string(n.Pronouns)
		if p == "" {
			p = "unknown"
		}
		fmt.Fprintf(b, "| %s | %d | %s |\n", cell(n.Name), n.Occurrences, p)
	}
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

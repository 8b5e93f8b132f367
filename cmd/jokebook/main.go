package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/jokebook/pkg/jokebook"
	"github.com/cognicore/jokebook/pkg/jokebook/classify"
	"github.com/cognicore/jokebook/pkg/jokebook/config"
	"github.com/cognicore/jokebook/pkg/jokebook/observe"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	debug      bool
	stats      bool

	provider *observe.Provider
	book     *jokebook.Jokebook
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "jokebook",
		Short: "Capture, classify and organize jokes",
		Long: `Jokebook turns scanned notes, transcripts and pasted text into a
classified joke collection.

Examples:
  jokebook import notes.txt
  jokebook import --image page.txt
  jokebook import --audio set.m4a
  jokebook organize
  jokebook folders`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log at debug level")
	root.PersistentFlags().BoolVar(&a.stats, "stats", false, "print run metrics when done")

	root.AddCommand(
		a.importCmd(),
		a.classifyCmd(),
		a.organizeCmd(),
		a.listCmd(),
		a.foldersCmd(),
	)
	return root
}

// setupLogger builds the stderr logger. --debug wins over the configured level.
func setupLogger(w io.Writer, level config.LogLevel, debug bool) *slog.Logger {
	lvl := level.Level()
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return nil
	}

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.LogLevel, a.debug)

	a.provider = observe.NewProvider("jokebook")
	metrics, err := observe.NewMetrics(a.provider)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	book, err := jokebook.Open(cmd.Context(), cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("open jokebook: %w", err)
	}
	a.book = book
	return nil
}

func (a *app) close(cmd *cobra.Command, _ []string) error {
	var errs []error
	if a.stats && a.provider != nil {
		samples, err := a.provider.Snapshot(cmd.Context())
		if err != nil {
			errs = append(errs, err)
		}
		for _, s := range samples {
			fmt.Fprintln(cmd.ErrOrStderr(), s)
		}
	}
	if a.book != nil {
		errs = append(errs, a.book.Close())
	}
	if a.provider != nil {
		errs = append(errs, a.provider.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}

func (a *app) importCmd() *cobra.Command {
	var image, audio string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import jokes from a text file, stdin, an image or a recording",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				res jokebook.ImportResult
				err error
			)
			switch {
			case image != "":
				data, rerr := os.ReadFile(image)
				if rerr != nil {
					return fmt.Errorf("read image: %w", rerr)
				}
				res, err = a.book.ImportImage(ctx, data)
			case audio != "":
				res, err = a.book.ImportAudio(ctx, audio)
			default:
				text, rerr := readInput(cmd.InOrStdin(), args)
				if rerr != nil {
					return rerr
				}
				res, err = a.book.ImportText(ctx, text, jokebook.SourceText)
			}
			if err != nil {
				if jokebook.IsCaptureFailure(err) {
					return fmt.Errorf("nothing imported: %w", err)
				}
				return err
			}
			printImport(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "recognize text from an image file")
	cmd.Flags().StringVar(&audio, "audio", "", "transcribe an audio recording")
	cmd.MarkFlagsMutuallyExclusive("image", "audio")
	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func printImport(w io.Writer, res jokebook.ImportResult) {
	fmt.Fprintf(w, "strategy: %s\n", res.Strategy)
	fmt.Fprintf(w, "saved %d, review %d, duplicates %d\n", len(res.Saved), len(res.Review), len(res.Duplicates))
	for _, j := range res.Saved {
		fmt.Fprintf(w, "  + %s  %s\n", j.ID, j.Title)
	}
	for _, c := range res.Review {
		fmt.Fprintf(w, "  ? %s\n", truncate(c.Content, 60))
		for _, issue := range c.Issues {
			fmt.Fprintf(w, "      - %s\n", issue)
		}
		if c.SuggestedFix != "" {
			fmt.Fprintf(w, "      fix: %s\n", c.SuggestedFix)
		}
	}
	for _, c := range res.Duplicates {
		fmt.Fprintf(w, "  = %s\n", truncate(c.Content, 60))
	}
}

func (a *app) classifyCmd() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "classify [id]",
		Short: "Show category matches and style for a stored joke or for --text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res classify.Result
			switch {
			case text != "":
				res = a.book.ClassifyText(text)
			case len(args) == 1:
				var err error
				res, err = a.book.Classify(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			default:
				return errors.New("classify needs a joke id or --text")
			}
			printClassification(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "classify this text instead of a stored joke")
	return cmd
}

func printClassification(w io.Writer, res classify.Result) {
	for _, m := range res.Matches {
		fmt.Fprintf(w, "%-16s %.2f  %s\n", m.Category, m.Confidence, m.Reasoning)
	}
	if len(res.Style.Tags) > 0 {
		fmt.Fprintf(w, "style: %s\n", strings.Join(res.Style.Tags, ", "))
	}
	if res.Style.Tone != "" {
		fmt.Fprintf(w, "tone: %s\n", res.Style.Tone)
	}
	if len(res.Style.CraftSignals) > 0 {
		fmt.Fprintf(w, "craft: %s\n", strings.Join(res.Style.CraftSignals, ", "))
	}
	fmt.Fprintf(w, "structure: %.2f\n", res.Style.StructureScore)
}

func (a *app) organizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "organize",
		Short: "File every joke into the folder for its category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.book.Organize(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "organized %d jokes, %d need review\n", res.Organized, res.Suggested)
			if len(res.CreatedFolders) > 0 {
				fmt.Fprintf(w, "new folders: %s\n", strings.Join(res.CreatedFolders, ", "))
			}
			if res.SaveErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: results not saved: %v\n", res.SaveErr)
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var folder string
	var review bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored jokes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			jokes, err := a.book.Jokes(ctx)
			if err != nil {
				return err
			}
			folderID := ""
			if folder != "" {
				folders, err := a.book.Folders(ctx)
				if err != nil {
					return err
				}
				for _, f := range folders {
					if f.Name == folder {
						folderID = f.ID
					}
				}
				if folderID == "" {
					return fmt.Errorf("no folder named %q", folder)
				}
			}

			w := cmd.OutOrStdout()
			for _, j := range jokes {
				if folderID != "" && j.FolderID != folderID {
					continue
				}
				if review && !j.NeedsReview {
					continue
				}
				printJoke(w, j)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "only jokes in this folder")
	cmd.Flags().BoolVar(&review, "review", false, "only jokes whose category needs review")
	return cmd
}

func printJoke(w io.Writer, j store.Joke) {
	category := j.Category
	if category == "" {
		category = "-"
	}
	mark := " "
	if j.NeedsReview {
		mark = "?"
	}
	fmt.Fprintf(w, "%s %s %-14s %s\n", j.ID, mark, category, truncate(j.Title, 50))
}

func (a *app) foldersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders and how many jokes each holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			folders, err := a.book.Folders(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range folders {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", f.Name, len(f.JokeIDs))
			}
			return nil
		},
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

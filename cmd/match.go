package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/search"
	"github.com/kozaktomas/product-matcher/internal/storage"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Find catalog products that look like a local photo",
	Long: `Run a visual search for a photo on disk against the configured catalog.

The photo is copied into temporary storage for the search; the original file
is never modified or removed.

Examples:
  # Search the catalog for a photo
  product-matcher match ./photo.jpg

  # Loosen the similarity cut-off
  product-matcher match ./photo.jpg --max-score 0.6

  # Output as JSON
  product-matcher match ./photo.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Bool("json", false, "Output results as JSON")
	matchCmd.Flags().Float64("exact-threshold", 0, "Scores below this are exact matches (default from MATCHER_EXACT_THRESHOLD)")
	matchCmd.Flags().Float64("max-score", 0, "Scores at or above this are dropped (default from MATCHER_MAX_SCORE)")
	matchCmd.Flags().Float64("tolerance", 0, "Per-pixel difference ignored when counting differing pixels (default from MATCHER_TOLERANCE)")
}

// MatchOutput is the JSON output of the match command.
type MatchOutput struct {
	Image   string         `json:"image"`
	Backend string         `json:"backend"`
	Count   int            `json:"count"`
	Matches []search.Match `json:"matches"`
}

// searchOptions returns the configured search options.
func searchOptions(cfg *config.Config) search.Options {
	return search.OptionsFromConfig(cfg.Matcher)
}

// applyMatchFlags overrides configured thresholds with flags the user set.
func applyMatchFlags(cmd *cobra.Command, opts *search.Options) {
	if cmd.Flags().Changed("exact-threshold") {
		opts.Params.ExactThreshold = mustGetFloat64(cmd, "exact-threshold")
	}
	if cmd.Flags().Changed("max-score") {
		opts.Params.MaxScore = mustGetFloat64(cmd, "max-score")
	}
	if cmd.Flags().Changed("tolerance") {
		opts.Params.Tolerance = mustGetFloat64(cmd, "tolerance")
	}
}

// fileUpload presents a local file as a search upload.
func fileUpload(path string) (*search.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return &search.Upload{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path) //nolint:gosec // path given by the user on the command line
		},
	}, nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	cfg := config.Load()
	log := newLogger(cfg)
	defer log.Sync()

	opts := searchOptions(cfg)
	applyMatchFlags(cmd, &opts)

	upload, err := fileUpload(args[0])
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}
	catalogDB, err := openCatalog(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer catalogDB.Close()

	products, err := database.GetProductReader(cmd.Context())
	if err != nil {
		return err
	}
	svc, err := search.NewService(products, store, opts, log)
	if err != nil {
		return err
	}

	matches, err := svc.Search(cmd.Context(), upload)
	if err != nil {
		var reqErr *search.RequestError
		if errors.As(err, &reqErr) {
			return errors.New(reqErr.Message)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return outputJSON(MatchOutput{
			Image:   args[0],
			Backend: database.BackendName(),
			Count:   len(matches),
			Matches: matches,
		})
	}
	printMatches(matches)
	return nil
}

func printMatches(matches []search.Match) {
	if len(matches) == 0 {
		fmt.Println("No similar products found.")
		return
	}
	if matches[0].Exact {
		fmt.Printf("Exact match (%d):\n\n", len(matches))
	} else {
		fmt.Printf("Similar products (%d):\n\n", len(matches))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tID\tNAME\tIMAGE")
	for i, m := range matches {
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\t%s\n", i+1, m.Score, m.Product.ID, m.Product.Name, m.Product.PrimaryImage())
	}
	w.Flush()
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

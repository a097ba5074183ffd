package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/kozaktomas/product-matcher/internal/catalog"
	"github.com/kozaktomas/product-matcher/internal/config"
	"github.com/kozaktomas/product-matcher/internal/constants"
	"github.com/kozaktomas/product-matcher/internal/database"
	"github.com/kozaktomas/product-matcher/internal/imaging"
	"github.com/kozaktomas/product-matcher/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var catalogVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every product image can be used for visual search",
	Long: `Load and normalize the primary image of every active product, the same way
a visual search does, and report products whose image is missing, unreadable
or not set. Such products never appear in search results.

Examples:
  product-matcher catalog verify
  product-matcher catalog verify --concurrency 16 --json`,
	Args: cobra.NoArgs,
	RunE: runCatalogVerify,
}

func init() {
	catalogCmd.AddCommand(catalogVerifyCmd)

	catalogVerifyCmd.Flags().Int("concurrency", constants.DefaultVerifyConcurrency, "Number of parallel image loaders")
	catalogVerifyCmd.Flags().Bool("json", false, "Output the report as JSON")
}

// Image problems found by catalog verify.
const (
	problemNoImage = "no image"
	problemMissing = "missing file"
	problemCorrupt = "unreadable"
)

// VerifyIssue is a product whose primary image cannot be searched.
type VerifyIssue struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Problem   string `json:"problem"`
	Detail    string `json:"detail,omitempty"`
}

// VerifyReport is the JSON output of catalog verify.
type VerifyReport struct {
	Checked int           `json:"checked"`
	OK      int           `json:"ok"`
	Issues  []VerifyIssue `json:"issues"`
}

// verifyProducts checks every product's primary image on a bounded pool.
// progress is called once per dispatched product. Issues are sorted by product ID.
func verifyProducts(ctx context.Context, products []catalog.Product, store *storage.Store, concurrency int, progress func()) (VerifyReport, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	report := VerifyReport{Checked: len(products), Issues: []VerifyIssue{}}

	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range products {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}

		wg.Add(1)
		go func(p *catalog.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			defer progress()

			if ctx.Err() != nil {
				return
			}
			issue := verifyProduct(p, store)
			mu.Lock()
			if issue != nil {
				report.Issues = append(report.Issues, *issue)
			} else {
				report.OK++
			}
			mu.Unlock()
		}(&products[i])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	sort.Slice(report.Issues, func(i, j int) bool {
		return report.Issues[i].ProductID < report.Issues[j].ProductID
	})
	return report, nil
}

func verifyProduct(p *catalog.Product, store *storage.Store) *VerifyIssue {
	ref := p.PrimaryImage()
	issue := &VerifyIssue{ProductID: p.ID, Name: p.Name, Image: ref}
	if ref == "" {
		issue.Problem = problemNoImage
		return issue
	}
	if !store.Exists(ref) {
		issue.Problem = problemMissing
		return issue
	}
	path, err := store.Resolve(ref)
	if err == nil {
		_, err = imaging.LoadNormalized(path, constants.NormalizedSize)
	}
	if err != nil {
		issue.Problem = problemCorrupt
		issue.Detail = err.Error()
		return issue
	}
	return nil
}

func runCatalogVerify(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	log := newLogger(cfg)
	defer log.Sync()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}
	catalogDB, err := openCatalog(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer catalogDB.Close()

	reader, err := database.GetProductReader(cmd.Context())
	if err != nil {
		return err
	}
	if !jsonOutput {
		summary, err := catalogSummary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Verifying %s\n", summary)
	}
	products, err := reader.ListActive(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	if len(products) == 0 {
		if jsonOutput {
			return outputJSON(VerifyReport{Issues: []VerifyIssue{}})
		}
		fmt.Println("Catalog is empty, nothing to verify.")
		return nil
	}

	progress := func() {}
	if !jsonOutput {
		bar := progressbar.NewOptions(len(products),
			progressbar.OptionSetDescription("Verifying images"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("products"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		progress = func() { bar.Add(1) }
	}

	report, err := verifyProducts(cmd.Context(), products, store, concurrency, progress)
	if err != nil {
		return fmt.Errorf("verification interrupted: %w", err)
	}

	if jsonOutput {
		return outputJSON(report)
	}

	fmt.Printf("\n\nChecked %d products: %d searchable, %d with problems\n", report.Checked, report.OK, len(report.Issues))
	if len(report.Issues) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tIMAGE\tPROBLEM")
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", issue.ProductID, issue.Name, issue.Image, issue.Problem)
	}
	w.Flush()
	return nil
}

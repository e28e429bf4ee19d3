package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halalscan/backend/config"
	"github.com/halalscan/backend/internal/app"
	"github.com/halalscan/backend/internal/domain"
	"github.com/halalscan/backend/internal/infrastructure/logging"
	"github.com/halalscan/backend/internal/usecase"
)

var (
	// Global flags
	verbose       bool
	catalogSource string
	taxonomyPath  string
	timeout       time.Duration

	// classify flags
	label   string
	explain bool

	// scan flags
	barcode   string
	text      string
	imagePath string
	apiKey    string
	language  string
	model     string
	enrich    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "halalcheck",
	Short: "Check products and ingredient lists for halal compliance",
	Long: `halalcheck runs the HalalScan resolver from the command line.

Configuration is read the same way as the server (HALALSCAN_* environment,
.env, config.yaml); flags override the catalog and taxonomy locations.
Results are printed as JSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New("development", level)
		return err
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [ingredient...]",
	Short: "Classify an ingredient list or a printed label",
	Long: `Classifies each ingredient against the taxonomy and prints the findings.

Example:
  halalcheck classify sugar gelatin E120
  halalcheck classify --label "Ingredients: sugar, emulsifier (E471), pork gelatin" --explain`,
	RunE: runClassify,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Resolve a barcode, a description or a photo",
	Long: `Runs the full scan pipeline: catalog lookup, local classification and,
when an API key is given, the compliance advisor.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Product catalog commands",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the catalog and print the product count",
	Args:  cobra.NoArgs,
	RunE:  runCatalogStats,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&catalogSource, "catalog", "", "Catalog location (default: HALALSCAN_CATALOG_SOURCE)")
	rootCmd.PersistentFlags().StringVar(&taxonomyPath, "taxonomy", "", "Taxonomy YAML override (default: embedded)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	classifyCmd.Flags().StringVar(&label, "label", "", "Raw printed ingredient label")
	classifyCmd.Flags().BoolVar(&explain, "explain", false, "Print the matching stage and evidence per ingredient")

	scanCmd.Flags().StringVar(&barcode, "barcode", "", "Product barcode")
	scanCmd.Flags().StringVar(&text, "text", "", "Free-text product description")
	scanCmd.Flags().StringVar(&imagePath, "image", "", "Path to a product photo")
	scanCmd.Flags().StringVar(&apiKey, "key", os.Getenv("HALALSCAN_ADVISOR_KEY"), "Advisor API key (or set HALALSCAN_ADVISOR_KEY)")
	scanCmd.Flags().StringVar(&language, "lang", "", "Response language: en, ru or ar")
	scanCmd.Flags().StringVar(&model, "model", "", "Advisor model override")
	scanCmd.Flags().BoolVar(&enrich, "enrich", false, "Ask the advisor even when the catalog has the product")

	catalogCmd.AddCommand(catalogStatsCmd)

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type explainedIngredient struct {
	Ingredient string        `json:"ingredient"`
	Match      usecase.Match `json:"match"`
}

// runClassify prints local findings for the given ingredients
func runClassify(cmd *cobra.Command, args []string) error {
	ingredients := append([]string{}, args...)
	if label != "" {
		ingredients = append(ingredients, usecase.ParseIngredientLabel(label)...)
	}
	if len(ingredients) == 0 {
		return fmt.Errorf("%w: pass ingredients as arguments or --label", domain.ErrInvalidRequest)
	}

	a, err := newApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	result := map[string]interface{}{
		"ingredients":   ingredients,
		"localFindings": domain.NewLocalFindings(a.Classifier.Check(ingredients)),
	}
	if explain {
		matches := a.Classifier.Explain(ingredients)
		explained := make([]explainedIngredient, len(ingredients))
		for i, ingredient := range ingredients {
			explained[i] = explainedIngredient{Ingredient: ingredient, Match: matches[i]}
		}
		result["explain"] = explained
	}

	return printJSON(cmd, result)
}

// runScan resolves one scan request against the configured catalog
func runScan(cmd *cobra.Command, args []string) error {
	req := &domain.ScanRequest{
		Barcode:    barcode,
		Text:       text,
		Credential: apiKey,
		Language:   language,
		Model:      model,
		Enrich:     enrich,
	}
	if imagePath != "" {
		image, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		req.Image = image
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.Scanner.Scan(ctx, req)
	if err != nil {
		return err
	}

	return printJSON(cmd, outcome)
}

// runCatalogStats fetches the catalog once and reports its size
func runCatalogStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	count := a.Catalog.Load(ctx)

	return printJSON(cmd, map[string]interface{}{
		"source":   a.Config.Catalog.Source,
		"products": count,
		"loaded":   a.Catalog.Loaded(),
	})
}

// newApp loads configuration, applies flag overrides and wires the application
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if catalogSource != "" {
		cfg.Catalog.Source = catalogSource
	}
	if taxonomyPath != "" {
		cfg.Taxonomy.Path = taxonomyPath
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return app.New(ctx, cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

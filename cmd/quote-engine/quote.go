package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/precisionworks/quote-engine/internal/engine"
	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/internal/pricing"
	"github.com/precisionworks/quote-engine/pkg/format"
)

var quoteFile string

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a single part from a YAML payload",
	Long: "Reads a quote payload (material, stock or shape, volumes, quantity) from a\n" +
		"YAML file, runs the engine once, and prints the anchor breakdown with\n" +
		"quantity price breaks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(quoteFile)
		if err != nil {
			return eris.Wrapf(err, "read payload %s", quoteFile)
		}
		var in model.QuoteInput
		if err := yaml.Unmarshal(data, &in); err != nil {
			return eris.Wrap(err, "parse payload")
		}
		if in.Material == "" {
			return eris.New("payload is missing material_name")
		}
		applyShopDefaults(&in)

		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		solver, calc := buildEngine(db)

		sess := engine.NewSession(solver, calc, nil, engineWindows(), logger)
		defer sess.Close()

		result, err := sess.Apply(ctx, in)
		if err != nil {
			return eris.Wrap(err, "quote failed")
		}
		if !result.Priced {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "payload cannot be priced:")
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "  %s\n", w.Message)
			}
			return eris.New("incomplete quote payload")
		}

		breaks, err := calc.CalculatePriceBreaks(ctx, model.QuoteInput{
			Material:     in.Material,
			Stock:        result.Stock,
			PartVolume:   result.PartVolume,
			SetupTime:    in.SetupTime,
			ShopRate:     in.ShopRate,
			HandlingTime: in.HandlingTime,
		})
		if err != nil {
			return eris.Wrap(err, "price breaks failed")
		}

		printResult(cmd, sess.QuoteID(), in, result)
		printBreaks(cmd, breaks)
		return nil
	},
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteFile, "file", "f", "", "YAML payload file")
	quoteCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(quoteCmd)
}

// applyShopDefaults fills unset economics fields from the shop config so a
// minimal payload still prices.
func applyShopDefaults(in *model.QuoteInput) {
	if in.Quantity < 1 {
		in.Quantity = 1
	}
	if in.SetupTime <= 0 {
		in.SetupTime = cfg.Shop.SetupTimeMins
	}
	if in.ShopRate <= 0 {
		in.ShopRate = cfg.Shop.Rate
	}
	if in.HandlingTime <= 0 {
		in.HandlingTime = cfg.Shop.HandlingTimeMins
	}
}

func printResult(cmd *cobra.Command, quoteID string, in model.QuoteInput, result engine.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Quote %s\n", quoteID)
	fmt.Fprintf(out, "  Material:      %s\n", in.Material)
	fmt.Fprintf(out, "  Stock:         %s x %s x %s (%s)\n",
		format.Dimension(result.Stock.X),
		format.Dimension(result.Stock.Y),
		format.Dimension(result.Stock.Z),
		format.Volume(result.Stock.Volume()),
	)
	fmt.Fprintf(out, "  Part volume:   %s\n", format.Volume(result.PartVolume))
	fmt.Fprintf(out, "  Removal ratio: %s\n", format.Percent(result.RemovalRatio))
	if result.Shape != nil {
		fmt.Fprintf(out, "  Shape:         %s\n", result.Shape.Type)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Material cost: %s/unit\n", format.Currency(result.Anchor.MaterialCostPerUnit))
	fmt.Fprintf(out, "  Labor cost:    %s/unit (%.1f min runtime)\n",
		format.Currency(result.Anchor.LaborCostPerUnit), result.Anchor.TotalRuntimeMins)
	fmt.Fprintf(out, "  Anchor price:  %s/unit\n", format.Currency(result.Anchor.PricePerUnit))
	fmt.Fprintf(out, "  Total (qty %d): %s\n", in.Quantity, format.Currency(result.Anchor.TotalPrice))

	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w.Message)
	}
}

func printBreaks(cmd *cobra.Command, breaks []pricing.PriceBreak) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Qty    Unit Price   Total          vs Qty 1")
	for i, b := range breaks {
		line := fmt.Sprintf("  %-6d %-12s %-14s", b.Quantity,
			format.Currency(b.PricePerUnit), format.Currency(b.TotalPrice))
		if i > 0 {
			line += format.SignedCurrency(b.PricePerUnit - breaks[0].PricePerUnit) + "/unit"
		}
		fmt.Fprintln(out, line)
	}
}

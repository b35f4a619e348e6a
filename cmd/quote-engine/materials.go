package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/precisionworks/quote-engine/pkg/format"
)

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "List the material catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		materials, err := db.ListMaterials(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Material            Cost/in³   Machinability")
		for _, m := range materials {
			fmt.Fprintf(out, "%-19s %-10s %.1f\n", m.Name, format.Currency(m.CostPerIn3), m.Machinability)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(materialsCmd)
}

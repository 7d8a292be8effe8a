package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"walrusweb/pkg/models"
	"walrusweb/pkg/rates"
	"walrusweb/pkg/services"
)

func quoteCommand() *cobra.Command {
	var industry, format string
	var volume, currentRate float64
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute a rate and savings estimate without storing a pitch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if volume <= 0 {
				return errors.New("--volume must be greater than 0")
			}
			if currentRate <= 0 {
				return errors.New("--current-rate must be greater than 0")
			}
			quote := services.ComputeQuote(industry, volume, currentRate)
			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(quote)
			case "text":
				return writeQuoteText(cmd.OutOrStdout(), quote)
			}
			return fmt.Errorf("unknown format %q, expected json or text", format)
		},
	}
	cmd.Flags().StringVar(&industry, "industry", "", "merchant industry")
	cmd.Flags().Float64Var(&volume, "volume", 0, "monthly card volume in dollars")
	cmd.Flags().Float64Var(&currentRate, "current-rate", 0, "current processor rate in percent")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or text")
	_ = cmd.MarkFlagRequired("industry")
	_ = cmd.MarkFlagRequired("volume")
	_ = cmd.MarkFlagRequired("current-rate")
	return cmd
}

func writeQuoteText(w io.Writer, quote models.Quote) error {
	_, err := fmt.Fprintf(
		w,
		"Industry:         %s\nMonthly volume:   $%s\nCurrent rate:     %.2f%%\nWalrus rate:      %.2f%% + $%.2f\nMonthly savings:  $%s\nAnnual savings:   $%s\n",
		quote.Industry,
		humanize.Commaf(quote.MonthlyVolume),
		quote.CurrentRate,
		quote.WalrusRatePercent,
		quote.WalrusRateFixed,
		humanize.CommafWithDigits(quote.MonthlySavings, 2),
		humanize.Comma(int64(quote.AnnualSavings)),
	)
	return err
}

func industriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "industries",
		Short: "List the industries with a dedicated base rate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range rates.Industries() {
				rate, _ := rates.Base(name)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-24s %.2f%% + $%.2f\n", name, rate.Percent, rate.Fixed); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

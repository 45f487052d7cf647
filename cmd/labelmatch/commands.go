package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/bosocmputer/product_label_matcher/internal/resolver"
	"github.com/spf13/cobra"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <image>",
		Short: "Recognize the label text in an image and list the closest catalog products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.resolver(cmd)
			if err != nil {
				return err
			}
			matches, err := r.ResolveImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !wantsTable(cmd.OutOrStdout(), *ctx.jsonFlag) {
				return writeJSON(cmd, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching products.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), matchTable(matches))
			return nil
		},
	}
}

func newTextCommand(ctx *commandContext) *cobra.Command {
	var noVariants bool

	cmd := &cobra.Command{
		Use:   "text [text]",
		Short: "Match already-recognized label text (argument or stdin) against the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readTextInput(cmd, args)
			if err != nil {
				return err
			}

			var r *resolver.Resolver
			if noVariants {
				cache, err := ctx.catalog()
				if err != nil {
					return err
				}
				idx, err := cache.Get(cmd.Context())
				if err != nil {
					return err
				}
				opts := resolver.OptionsFromEnv()
				opts.ExpandVariants = false
				r = resolver.New(idx, resolver.Dependencies{}, opts, ctx.logger)
			} else if r, err = ctx.resolver(cmd); err != nil {
				return err
			}

			matches, err := r.Resolve(cmd.Context(), input)
			if err != nil {
				return err
			}
			if !wantsTable(cmd.OutOrStdout(), *ctx.jsonFlag) {
				return writeJSON(cmd, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching products.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), matchTable(matches))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noVariants, "no-variants", false, "Skip Korean/English variant expansion (no API key needed)")
	return cmd
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <image>",
		Short: "Detect products in an image and confirm each one by comparing catalog images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.resolver(cmd)
			if err != nil {
				return err
			}
			resolutions, err := r.ResolveWithVerification(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !wantsTable(cmd.OutOrStdout(), *ctx.jsonFlag) {
				return writeJSON(cmd, resolutions)
			}
			if len(resolutions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products detected.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolutionTable(resolutions))
			return nil
		},
	}
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var (
		limit int
		name  string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load the catalog and show how many rows mapped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.catalog()
			if err != nil {
				return err
			}
			idx, err := cache.Get(cmd.Context())
			if err != nil {
				return err
			}
			stats, _ := cache.Stats()

			records := idx.All()
			if name != "" {
				rec, ok := idx.Lookup(name)
				if !ok {
					return fmt.Errorf("no catalog product named %q", name)
				}
				records = []catalog.ProductRecord{rec}
			}
			if limit >= 0 && len(records) > limit {
				records = records[:limit]
			}

			if !wantsTable(cmd.OutOrStdout(), *ctx.jsonFlag) {
				return writeJSON(cmd, map[string]any{"stats": stats, "records": records})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rows: %d  Loaded: %d  Skipped: %d\n", stats.Rows, stats.Loaded, stats.Skipped)
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				image := "-"
				if rec.ImageURL != "" {
					image = "yes"
				}
				rows = append(rows, []string{rec.PrimaryName, strings.Join(rec.Aliases, ", "), allergenText(rec.Allergens), image})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Product", "Aliases", "Allergens", "Image"},
				rows,
				nil,
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Records to list (-1 for all)")
	cmd.Flags().StringVar(&name, "name", "", "Show only the product with this exact name")
	return cmd
}

// readTextInput takes the argument, or stdin when no argument is given.
func readTextInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no text given (pass it as an argument or on stdin)")
	}
	return string(data), nil
}

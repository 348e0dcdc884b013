package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	countryservice "phonenorm_backend/internal/countries/service"
	countrytransport "phonenorm_backend/internal/countries/transport"
	normservice "phonenorm_backend/internal/normalization/service"
	"phonenorm_backend/internal/normalization/transport"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
	"phonenorm_backend/platform/validator"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	table  string
	pretty bool
}

type normalizeOptions struct {
	region      string
	callingCode string
	validate    bool
	strict      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "phonenorm",
		Short:        "Normalize loosely formatted phone numbers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.table, "table", "", "YAML or JSON country table to use instead of the embedded one")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(newNormalizeCmd(opts), newCountriesCmd(opts), newRegionsCmd(opts))
	return root
}

func newNormalizeCmd(root *rootOptions) *cobra.Command {
	opts := &normalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize [numbers...]",
		Short: "Normalize numbers given as arguments, or one per line on stdin",
		Example: `  phonenorm normalize --region UK "020 7946 0123"
  phonenorm normalize --calling-code 49 --validate < numbers.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.callingCode != "" {
				if err := validator.New().Var(opts.callingCode, "calling_code"); err != nil {
					return fmt.Errorf("invalid --calling-code %q", opts.callingCode)
				}
			}

			normalizer, log, err := loadNormalizer(cmd, root)
			if err != nil {
				return err
			}
			svc := normservice.New(normalizer, normservice.Deps{}, 0, log)

			numbers := args
			if len(numbers) == 0 {
				if numbers, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			enc := newEncoder(cmd.OutOrStdout(), root.pretty)
			failed := 0
			for _, number := range numbers {
				resp := svc.Normalize(cmd.Context(), transport.NormalizeRequest{
					Number:      number,
					Region:      opts.region,
					CallingCode: opts.callingCode,
					Validate:    opts.validate,
				})
				if !resp.OK() {
					failed++
				}
				if err := enc.Encode(resp); err != nil {
					return err
				}
			}

			if opts.strict && failed > 0 {
				return fmt.Errorf("%d of %d numbers could not be normalized", failed, len(numbers))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.region, "region", "r", "", `region label such as "UK" or "Germany"`)
	cmd.Flags().StringVarP(&opts.callingCode, "calling-code", "c", "", "calling code to use instead of --region")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "add plausibility checks to each result")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when any number fails")
	return cmd
}

func newCountriesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "Print the country table in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			normalizer, log, err := loadNormalizer(cmd, root)
			if err != nil {
				return err
			}
			svc := countryservice.New(normalizer, nil, nil, nil, log)
			return newEncoder(cmd.OutOrStdout(), root.pretty).Encode(svc.List())
		},
	}
}

func newRegionsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "Print the accepted region labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return newEncoder(cmd.OutOrStdout(), root.pretty).Encode(countrytransport.RegionListResponse{Regions: phone.Regions()})
		},
	}
}

// loadNormalizer fails on a bad table instead of degrading to an empty one,
// since a CLI run has nobody to notice a warning in the logs.
func loadNormalizer(cmd *cobra.Command, opts *rootOptions) (*phone.Normalizer, *logger.Logger, error) {
	log := logger.NewWithWriter("production", cmd.ErrOrStderr())

	var loader phone.Loader = phone.EmbeddedLoader{}
	if opts.table != "" {
		loader = phone.FileLoader{Path: opts.table}
	}

	table, err := phone.Load(cmd.Context(), loader)
	if err != nil {
		return nil, nil, err
	}
	return phone.NewNormalizerFromTable(table, log), log, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}

func newEncoder(w io.Writer, pretty bool) *json.Encoder {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc
}

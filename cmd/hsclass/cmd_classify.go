package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aconic-ni/customsclass-r/internal/app"
	"github.com/aconic-ni/customsclass-r/internal/classifier"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var brand string
	cmd := &cobra.Command{
		Use:   "classify [description]",
		Short: "Predict and explain the HS code of a product",
		Long: `Sends the description (and optional brand) to the configured AI provider,
prints the predicted HS code with both explanations and, when --user is set,
records the result in that user's history.

Example:
  hsclass classify --brand QuantumLeap "brass wrist chronometer with a Nixie tube display"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts, app.Options{})
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			out, err := a.Classifier.Classify(ctx, classifier.Request{
				Brand:       brand,
				Description: strings.Join(args, " "),
				UserID:      opts.userID,
			})
			if err != nil {
				var verr *classifier.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("invalid input: %s", verr.Error())
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out.Result); err != nil {
				return err
			}
			if out.Warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), out.Warning)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&brand, "brand", "b", "", "product brand (optional)")
	return cmd
}

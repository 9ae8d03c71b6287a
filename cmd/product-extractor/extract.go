package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maltedev/product-extractor/internal/api"
	"github.com/maltedev/product-extractor/internal/models"
)

func newExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract one product page and print the record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.service.Extract(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", models.ErrorCode(err), err)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newPolicyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "policy <url>",
		Short: "Print the host policy decision for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.refresher != nil {
				if err := a.policy.Allowlist().Refresh(cmd.Context()); err != nil {
					a.logger.Warn("allow-list refresh failed", "error", err)
				}
			}

			target, err := models.ParseTarget(args[0])
			if err != nil {
				return err
			}

			decision, err := a.policy.Check(cmd.Context(), target)
			resp := api.PolicyResponse{
				URL:             target.String(),
				Allowed:         err == nil,
				DisallowedPaths: decision.DisallowedPaths,
				ExpiresAt:       decision.ExpiresAt,
			}
			if resp.DisallowedPaths == nil {
				resp.DisallowedPaths = []string{}
			}
			if err != nil {
				if !models.IsPolicyError(err) {
					return err
				}
				resp.Reason = models.ErrorCode(err)
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

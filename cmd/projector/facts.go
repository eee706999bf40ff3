// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/projector/internal/factstore"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

func newFactsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Add and list facts",
		Long:  "Manage the facts in the configured store. With the memory backend facts live only for the current command.",
	}

	cmd.AddCommand(
		newFactsAddCmd(a),
		newFactsListCmd(a),
	)

	return cmd
}

func newFactsAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add facts from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return projerr.New(projerr.CodeCLIInputInvalid, "--file is required")
			}

			s, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			named, err := importFacts(cmd.Context(), s, file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, nf := range named {
				name := nf.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, nf.Fact.Type, nf.Fact.Hash())
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringP("file", "f", "", "facts file (- for stdin)")

	return cmd
}

// listedFact is one line of `facts list` output.
type listedFact struct {
	Hash string          `json:"hash"`
	Fact *factstore.Fact `json:"fact"`
}

func newFactsListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored facts as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			typ, _ := cmd.Flags().GetString("type")

			s, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, f := range s.Facts(typ) {
				if err := enc.Encode(listedFact{Hash: f.Hash(), Fact: f}); err != nil {
					return projerr.Errorf(projerr.CodeCLIInternal, "writing fact: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("type", "t", "", "only list facts of this type")

	return cmd
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/projector/internal/factstore"
	"github.com/sigil-dev/projector/internal/projection"
	"github.com/sigil-dev/projector/internal/tui"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the live result of a specification",
		Long: "Subscribe to a specification for one given fact and print the result as JSON each time it changes. " +
			"--given takes a fact hash, or a name from the --facts file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd)
		},
	}

	cmd.Flags().StringP("spec", "s", "", "specification file (YAML)")
	cmd.Flags().StringP("given", "g", "", "hash or local name of the given fact")
	cmd.Flags().StringP("facts", "f", "", "facts file to add before watching")
	cmd.Flags().Bool("once", false, "exit after the first settled result")
	cmd.Flags().Bool("tui", false, "show the result in an interactive terminal view")

	return cmd
}

func (a *app) runWatch(cmd *cobra.Command) error {
	specPath, _ := cmd.Flags().GetString("spec")
	given, _ := cmd.Flags().GetString("given")
	factsPath, _ := cmd.Flags().GetString("facts")
	once, _ := cmd.Flags().GetBool("once")
	useTUI, _ := cmd.Flags().GetBool("tui")

	if specPath == "" || given == "" {
		return projerr.New(projerr.CodeCLIInputInvalid, "--spec and --given are required")
	}

	spec, err := readSpec(specPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The store is opened cold; the manager waits for the load.
	s, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ref := factstore.Reference{Type: spec.Given, Hash: given}
	if factsPath != "" {
		if err := s.Load(ctx); err != nil {
			return err
		}
		named, err := importFacts(ctx, s, factsPath, cmd.InOrStdin())
		if err != nil {
			return err
		}
		for _, nf := range named {
			if nf.Name == given {
				ref = nf.Fact.Reference()
			}
		}
	}

	m := projection.NewManager(s,
		projection.WithLogger(a.logger),
		projection.WithLoadTimeout(a.cfg.Watch.LoadTimeout),
	)
	defer m.Close()

	if err := m.Update(ctx, spec, ref); err != nil {
		return err
	}

	if useTUI {
		return tui.Run(ctx, m, spec.QueryName())
	}
	return printResults(ctx, m, cmd.OutOrStdout(), a.cfg.Watch.Output == "pretty", once)
}

func readSpec(path string) (*factstore.Specification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, projerr.Errorf(projerr.CodeCLIInputInvalid, "opening specification: %w", err)
	}
	defer f.Close()
	return factstore.DecodeSpecification(f)
}

// printResults writes every settled result of m to w until ctx is done. An
// error result ends the watch.
func printResults(ctx context.Context, m *projection.Manager, w io.Writer, pretty, once bool) error {
	feed := tui.NewFeed(m)
	defer feed.Close()

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-feed.C():
			if !ok {
				return nil
			}
			if r.Err != nil {
				return r.Err
			}
			if !r.Ready() {
				continue
			}
			if err := enc.Encode(r.Data); err != nil {
				return projerr.Errorf(projerr.CodeCLIInternal, "writing result: %w", err)
			}
			if once {
				return nil
			}
		}
	}
}

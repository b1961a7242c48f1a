package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/forge18/depot-sub001/internal/conflict"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the manifest and print the version map",
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	m, _, err := loadProject()
	if err != nil {
		return err
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	r, err := newResolver(newClient(store))
	if err != nil {
		return err
	}

	g, err := r.Graph(cmd.Context(), m.Requested(false))
	if err != nil {
		return fmt.Errorf("resolution failed: %w", err)
	}
	if flagStrict {
		printWarnings(conflict.CheckStrict(g, m.Requested(false)))
	}

	resolved := g.Resolved()
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s %s\n", name, resolved[name])
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forge18/depot-sub001/fetch"
	"github.com/forge18/depot-sub001/internal/cache"
	"github.com/forge18/depot-sub001/internal/conflict"
	"github.com/forge18/depot-sub001/internal/manifest"
	"github.com/forge18/depot-sub001/internal/resolver"
	"github.com/forge18/depot-sub001/registry"
)

var (
	flagStrategy string
	flagStrict   bool
	flagRegistry string
)

var rootCmd = &cobra.Command{
	Use:   "depot",
	Short: "Resolve and lock LuaRocks dependencies",
	Long: `depot reads depot.toml, resolves its dependency constraints against the
LuaRocks registry and pins the result in depot.lock.

Examples:
  # Resolve and print the version map
  depot resolve

  # Build or update the lockfile
  depot lock

  # Add a dependency to depot.toml
  depot add penlight@^1.13.0
  depot add pkg:luarocks/penlight@1.14.0-3

  # Re-resolve everything and rewrite the lockfile
  depot update

  # Check cached artifacts against the lockfile
  depot verify`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStrategy, "strategy", "highest", "Version selection strategy: highest or lowest")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "Warn about diamond dependencies and constraint violations")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", fetch.DefaultRegistryURL, "Registry base URL")

	rootCmd.AddCommand(resolveCmd, lockCmd, updateCmd, addCmd, verifyCmd)
}

// loadProject locates the project root and reads its manifest, rejecting
// manifests with conflicting dependency tables up front.
func loadProject() (*manifest.Manifest, string, error) {
	root, err := manifest.FindRoot(".")
	if err != nil {
		return nil, "", err
	}
	m, err := manifest.Load(filepath.Join(root, manifest.Filename))
	if err != nil {
		return nil, "", err
	}
	if err := conflict.CheckManifest(m.Dependencies, m.DevDependencies); err != nil {
		return nil, "", err
	}
	return m, root, nil
}

func newStore() (*cache.Cache, error) {
	store, err := cache.Default()
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

func newClient(store *cache.Cache) *registry.Client {
	return registry.NewClient(store, registry.WithRegistryURL(flagRegistry))
}

func newResolver(client resolver.PackageClient) (*resolver.Resolver, error) {
	strategy, err := resolver.ParseStrategy(flagStrategy)
	if err != nil {
		return nil, err
	}
	return resolver.New(client, resolver.WithStrategy(strategy)), nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

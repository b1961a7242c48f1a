package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forge18/depot-sub001/internal/lockfile"
	"github.com/forge18/depot-sub001/internal/resolver"
)

var flagForceRebuild bool

var updateCmd = &cobra.Command{
	Use:   "update [pkg]",
	Short: "Re-resolve dependencies and rewrite the lockfile",
	Long: `update re-resolves the manifest and rewrites depot.lock. Packages that
resolve to the version already locked keep their recorded checksums, so the
lockfile only changes where versions move.

With a package name, only that package is refreshed even if it resolves to
the same version.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&flagForceRebuild, "force-rebuild", false, "Rebuild the lockfile from scratch if it is corrupt")
	updateCmd.Flags().BoolVar(&flagNoDev, "no-dev", false, "Exclude dev dependencies from the lockfile")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	m, root, err := loadProject()
	if err != nil {
		return err
	}

	lockPath := filepath.Join(root, lockfile.Filename)
	existing, err := lockfile.Load(lockPath)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		existing = nil
	case errors.Is(err, lockfile.ErrLockfileCorrupt):
		if !flagForceRebuild {
			return fmt.Errorf("%w; pass --force-rebuild to discard it", err)
		}
		existing = nil
	default:
		return err
	}

	if len(args) == 1 && existing != nil {
		name := args[0]
		if _, ok := existing.Package(name); !ok {
			return fmt.Errorf("package %q is not in the lockfile", name)
		}
		// Dropping the entry forces fresh metadata for this package while
		// everything else stays pinned by the same-version rule.
		delete(existing.Packages, name)
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	strategy, err := resolver.ParseStrategy(flagStrategy)
	if err != nil {
		return err
	}
	builder := lockfile.NewBuilder(newClient(store), store, lockfile.WithStrategy(strategy))

	var lf *lockfile.Lockfile
	if existing != nil {
		lf, err = builder.Update(cmd.Context(), existing, m, flagNoDev)
	} else {
		lf, err = builder.Build(cmd.Context(), m, flagNoDev)
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	if err := lf.Save(lockPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Locked %d packages in %s\n", len(lf.Packages), lockfile.Filename)
	return nil
}

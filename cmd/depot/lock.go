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

var flagNoDev bool

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Build or incrementally update depot.lock",
	Args:  cobra.NoArgs,
	RunE:  runLock,
}

func init() {
	lockCmd.Flags().BoolVar(&flagNoDev, "no-dev", false, "Exclude dev dependencies from the lockfile")
}

func runLock(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("%w; run 'depot update --force-rebuild' to rebuild it", err)
	default:
		return err
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
		return fmt.Errorf("locking failed: %w", err)
	}

	if err := lf.Save(lockPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Locked %d packages in %s\n", len(lf.Packages), lockfile.Filename)
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forge18/depot-sub001/internal/cache"
	"github.com/forge18/depot-sub001/internal/lockfile"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify lockfile checksums against cached artifacts",
	Args:  cobra.NoArgs,
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	_, root, err := loadProject()
	if err != nil {
		return err
	}

	lf, err := lockfile.Load(filepath.Join(root, lockfile.Filename))
	if err != nil {
		return err
	}

	store, err := newStore()
	if err != nil {
		return err
	}

	var missing, mismatched int
	for _, name := range lf.Names() {
		pkg := lf.Packages[name]
		path := store.SourcePath(pkg.SourceURL)
		if !store.Exists(path) {
			missing++
			fmt.Printf("%s %s: not in cache\n", name, pkg.Version)
			continue
		}
		ok, err := cache.VerifyChecksum(path, pkg.Checksum)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", name, err)
		}
		if !ok {
			mismatched++
			fmt.Printf("%s %s: checksum mismatch\n", name, pkg.Version)
			continue
		}
		fmt.Printf("%s %s: ok\n", name, pkg.Version)
	}

	if mismatched > 0 {
		return fmt.Errorf("%d package(s) failed checksum verification", mismatched)
	}
	if missing > 0 {
		fmt.Fprintf(os.Stderr, "%d package(s) not cached; run 'depot lock' to download them\n", missing)
	}
	return nil
}

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/gitops"
	"github.com/folio-dev/folio/internal/model"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new folio project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir)
		},
	}
	return cmd
}

func runInit(cmd *cobra.Command, dir string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, activity.LogDir), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", activity.LogDir, err)
	}

	// Write folio.yaml.
	if err := config.Save(cfgPath, config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write .gitignore.
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".env\n"), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	a, err := openApp(cmd.Context(), dir)
	if err != nil {
		return err
	}
	defer a.Close()

	// Create an empty partition per category.
	for _, c := range model.Categories {
		if err := a.store.Create(cmd.Context(), c); err != nil {
			return fmt.Errorf("creating %s ledger: %w", c, err)
		}
	}

	out := cmd.OutOrStdout()
	if !a.cfg.Git.AutoCommit {
		fmt.Fprintf(out, "Initialized folio project at %s\n", dir)
		return nil
	}
	if !gitops.Available() {
		fmt.Fprintf(out, "Initialized folio project at %s (git not found, history disabled)\n", dir)
		return nil
	}

	if !gitops.IsRepo(dir) {
		if err := gitops.Init(cmd.Context(), dir); err != nil {
			return err
		}
	}
	author := gitops.Author{Name: a.cfg.Git.AuthorName, Email: a.cfg.Git.AuthorEmail}
	hash, err := gitops.CommitAll(cmd.Context(), dir, "init: folio project", author)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized folio project at %s (%s)\n", dir, hash)
	return nil
}

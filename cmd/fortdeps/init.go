package main

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"fortdeps/internal/config"
	"fortdeps/internal/errors"
	"fortdeps/internal/modules"
	"fortdeps/internal/paths"
)

var initForce bool

const declarationHeader = `# FORTRAN.toml declares how fortdeps reads this tree.
#
# ignore     directories or globs left out of the walk
# intrinsic  extra compiler-supplied module names
# external   modules provided by libraries outside the tree
# [[source]] reader options for files matching a glob, first match wins:
#              [[source]]
#              pattern = "legacy/*.f"
#              options = "-e"

`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a FORTRAN.toml and default configuration",
	Long: `Create FORTRAN.toml and .fortdeps/config.json in a directory.

Existing files are kept unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := rootDir(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	resp := &InitResponseCLI{Created: []string{}}

	declPath := paths.DeclarationPath(root)
	if exists(declPath) && !initForce {
		resp.Skipped = append(resp.Skipped, declPath)
	} else {
		data, err := declarationTemplate()
		if err != nil {
			return errors.New(errors.InternalError, "Failed to render "+modules.DeclarationFile, err)
		}
		if err := os.WriteFile(declPath, data, 0o644); err != nil {
			return errors.New(errors.InternalError, "Failed to write "+modules.DeclarationFile, err)
		}
		resp.Created = append(resp.Created, declPath)
	}

	cfgPath := paths.ConfigPath(root)
	if exists(cfgPath) && !initForce {
		resp.Skipped = append(resp.Skipped, cfgPath)
	} else {
		if err := config.DefaultConfig().Save(root); err != nil {
			return errors.New(errors.InternalError, "Failed to write configuration", err)
		}
		resp.Created = append(resp.Created, cfgPath)
	}

	s.logger.Debug("Initialized", "created", len(resp.Created), "skipped", len(resp.Skipped))
	return writeOutput(cmd, resp, s.format)
}

// declarationTemplate renders the starter FORTRAN.toml.
func declarationTemplate() ([]byte, error) {
	decl := modules.Declaration{
		Version:   1,
		Ignore:    []string{"build"},
		Intrinsic: []string{},
		External:  []string{},
	}
	var buf bytes.Buffer
	buf.WriteString(declarationHeader)
	if err := toml.NewEncoder(&buf).Encode(decl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

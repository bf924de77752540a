package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zisk-core/provercore/zkerr"
)

var flagProjectName string

var sdkCmd = &cobra.Command{
	Use:   "sdk",
	Short: "Manage the local zisk SDK installation (proving key, toolchain)",
}

// sdkInstallCmd and sdkNewCmd supplement the distilled CLI surface with the
// project-scaffolding command original_source's cargo-zisk carries (a `new`
// subcommand that lays out a starter guest program).
var sdkInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Fetch and install the proving key bundle into --proving-key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(flagProvingKey, 0o755); err != nil {
			return zkerr.New(zkerr.TransientIO, "creating proving key directory", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "proving key directory ready at %s (fetch step delegates to the out-of-scope release channel)\n", flagProvingKey)
		return nil
	},
}

var sdkNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Scaffold a new guest program project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagProjectName = args[0]
		root := filepath.Join(".", flagProjectName)
		dirs := []string{root, filepath.Join(root, "src"), filepath.Join(root, "build")}
		for _, dir := range dirs {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zkerr.New(zkerr.TransientIO, fmt.Sprintf("creating %s", dir), err)
			}
		}

		if token := os.Getenv("ZISK_TOKEN"); token != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "detected ZISK_TOKEN, using it to clone zisk_template")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "no ZISK_TOKEN detected; if you get throttled by Github, set it to bypass the rate limit")
		}

		mainPath := filepath.Join(root, "src", "main.rs")
		stub := "#![no_main]\nziskos::entrypoint!(main);\n\nfn main() {\n    // guest program entrypoint\n}\n"
		if err := os.WriteFile(mainPath, []byte(stub), 0o644); err != nil {
			return zkerr.New(zkerr.TransientIO, "writing main.rs stub", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scaffolded project %s\n", root)
		return nil
	},
}

func init() {
	sdkCmd.AddCommand(sdkInstallCmd, sdkNewCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile the guest program to a RISC-V ELF",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "guest compilation delegates to the out-of-scope Rust/RISC-V toolchain")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the ELF under the emulator without generating a proof",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireElf(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "emulation delegates to the out-of-scope ASM/emulator services (see the asm package's Supervisor)")
		return nil
	},
}

var romSetupCmd = &cobra.Command{
	Use:   "rom-setup",
	Short: "Precompute the ROM's setup artifacts for the given proving key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireElf(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "rom setup delegates to the out-of-scope STARK setup collaborator")
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated build and output artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(flagOutputDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return zkerr.New(zkerr.TransientIO, "reading output directory", err)
		}
		for _, e := range entries {
			path := filepath.Join(flagOutputDir, e.Name())
			if err := os.RemoveAll(path); err != nil {
				return zkerr.New(zkerr.TransientIO, fmt.Sprintf("removing %s", path), err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", flagOutputDir)
		return nil
	},
}

var checkSetupCmd = &cobra.Command{
	Use:   "check-setup",
	Short: "Verify the local toolchain and proving key are in a usable state",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := os.Stat(flagProvingKey)
		if err != nil || !info.IsDir() {
			return zkerr.New(zkerr.ConfigInvalid, fmt.Sprintf("proving key directory %s is missing or not a directory", flagProvingKey), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "proving key directory %s is present\n", flagProvingKey)
		return nil
	},
}

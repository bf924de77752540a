package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zisk-core/provercore/pctx"
	"github.com/zisk-core/provercore/replay"
	"github.com/zisk-core/provercore/rom"
)

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Run a full prove pipeline against an input",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireElf(); err != nil {
			return err
		}
		p := newEmptyPipeline()
		if err := p.Prove(cmd.Context(), flagInputPath, flagAggregation, flagFinalSNARK, flagVerifyProofs); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "prove completed (the proof is not written to disk)")
		return nil
	},
}

var verifyConstraintsCmd = &cobra.Command{
	Use:   "verify-constraints",
	Short: "Recompute witnesses and check constraints without generating a STARK proof",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireElf(); err != nil {
			return err
		}
		p := newEmptyPipeline()
		if err := p.VerifyConstraints(cmd.Context(), flagInputPath, flagVerboseCount > 0); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "constraints verified")
		return nil
	},
}

var verifyStarkCmd = &cobra.Command{
	Use:   "verify-stark",
	Short: "Verify a previously generated STARK proof",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagInputPath == "" {
			return requireElf()
		}
		fmt.Fprintln(cmd.OutOrStdout(), "stark verification delegates to the out-of-scope crypto collaborator")
		return nil
	},
}

// newEmptyPipeline builds a pipeline with no airs registered — ELF-to-air
// compilation is the out-of-scope collaborator this core hands off to; see
// pipeline.go's doc comment.
func newEmptyPipeline() *pipeline {
	info := pctx.GlobalInfo{Airgroups: map[uint32]pctx.AirgroupInfo{}}
	return newPipeline(replay.New(rom.New(nil), replay.MapSource{}), info, noopBackend{}, 4)
}

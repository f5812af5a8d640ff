package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/park285/xiangqi-tutor/internal/adapter/xqpresenter"
	"github.com/park285/xiangqi-tutor/internal/analysis"
	"github.com/park285/xiangqi-tutor/internal/config"
	"github.com/park285/xiangqi-tutor/internal/obslog"
	"github.com/park285/xiangqi-tutor/internal/server"
	"github.com/park285/xiangqi-tutor/internal/xqbuilder"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
)

func Analyse() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Analyse one position with the engine",
		Args:    cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := positionFlag(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			depth, _ := cmd.Flags().GetInt("depth")
			multipv := multiPVFlag(cmd)

			deps, err := xqbuilder.New(cmd.Context(), cfg, obslog.L())
			if err != nil {
				return err
			}
			defer deps.Close()

			var res xqdto.AnalysisResponse
			err = withSpinner(jsonFlag(cmd), " 分析中", func() error {
				out, err := deps.Analyzer.Analyse(cmd.Context(), pos, cfg.ClampDepth(depth), multipv)
				if err != nil {
					return err
				}
				res = server.AnalysisResponse(pos, out)
				return nil
			})
			if err != nil {
				return err
			}
			f := xqpresenter.NewFormatter()
			return xqpresenter.NewPresenter(cmd.OutOrStdout(), jsonFlag(cmd)).Show(f.Analysis(res), res)
		},
	}
	cmd.Flags().String("fen", "", "Position to analyse (default: starting position)")
	cmd.Flags().Int("depth", 0, "Search depth (default: ANALYSIS_DEFAULT_DEPTH)")
	cmd.Flags().Int("multipv", 1, "Number of principal variations")
	return cmd
}

func Review() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <move>...",
		Short: "Replay a game and score every move with the engine",
		Args:  cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := positionFlag(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			depth, _ := cmd.Flags().GetInt("depth")

			deps, err := xqbuilder.New(cmd.Context(), cfg, obslog.L())
			if err != nil {
				return err
			}
			defer deps.Close()

			var res xqdto.ReviewResponse
			err = withSpinner(jsonFlag(cmd), " 复盘中", func() error {
				rev, err := analysis.NewReviewer(deps.Analyzer).Review(cmd.Context(), pos, args, cfg.ClampDepth(depth))
				if err != nil {
					return err
				}
				res = server.ReviewResponse(rev)
				return nil
			})
			if err != nil {
				return err
			}
			f := xqpresenter.NewFormatter()
			return xqpresenter.NewPresenter(cmd.OutOrStdout(), jsonFlag(cmd)).Show(f.Review(res), res)
		},
	}
	cmd.Flags().String("fen", "", "Starting position (default: standard opening)")
	cmd.Flags().Int("depth", 0, "Search depth per position")
	return cmd
}

// multiPVFlag reads --multipv clamped to the range the server accepts.
func multiPVFlag(cmd *cobra.Command) int {
	n, _ := cmd.Flags().GetInt("multipv")
	return min(max(n, 1), server.DefaultMaxMultiPV)
}

// withSpinner runs fn with a stderr spinner unless output is JSON.
func withSpinner(quiet bool, suffix string, fn func() error) error {
	if quiet {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	defer s.Stop()
	return fn()
}

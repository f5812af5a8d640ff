package main

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/park285/xiangqi-tutor/internal/obslog"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "xqtutor",
		Short: "Xiangqi rules, notation and engine analysis",
		Long: heredoc.Doc(`
			xqtutor serves xiangqi move generation, traditional notation and
			engine analysis over HTTP and websocket, and offers the same
			operations on the command line.

			Engine settings come from ENGINE_* variables or an optional YAML
			file named by XQ_CONFIG.
		`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return obslog.InitFromEnv()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			obslog.Sync()
		},
	}

	root.PersistentFlags().Bool("json", false, "Print JSON instead of text")

	root.AddCommand(Serve())
	root.AddCommand(Analyse())
	root.AddCommand(Review())
	root.AddCommand(Moves())
	root.AddCommand(Notation())
	return root
}

// positionFlag parses --fen, defaulting to the starting position.
func positionFlag(cmd *cobra.Command) (xiangqi.Position, error) {
	fen, _ := cmd.Flags().GetString("fen")
	if fen == "" {
		return xiangqi.StartPosition(), nil
	}
	return xiangqi.ParseFEN(fen)
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

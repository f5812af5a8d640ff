package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/park285/xiangqi-tutor/internal/adapter/xqpresenter"
	"github.com/park285/xiangqi-tutor/internal/resolver"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
)

func Moves() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moves",
		Short: "Print the board and every legal move",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := positionFlag(cmd)
			if err != nil {
				return err
			}
			out := xiangqi.Evaluate(pos)
			payload := xqdto.LegalMovesResponse{
				FEN:      pos.FEN(),
				Moves:    xiangqi.MoveStrings(xiangqi.LegalMoves(pos)),
				InCheck:  xiangqi.InCheck(pos),
				Terminal: out.Terminal(),
				Result:   out.Label(),
			}
			f := xqpresenter.NewFormatter()
			return xqpresenter.NewPresenter(cmd.OutOrStdout(), jsonFlag(cmd)).Show(f.Board(pos)+"\n\n"+f.Moves(pos), payload)
		},
	}
	cmd.Flags().String("fen", "", "Position (default: starting position)")
	return cmd
}

func Notation() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notation <move>...",
		Short: "Translate machine moves to traditional notation, or back with --parse",
		Args:  cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := positionFlag(cmd)
			if err != nil {
				return err
			}
			p := xqpresenter.NewPresenter(cmd.OutOrStdout(), jsonFlag(cmd))

			if parse, _ := cmd.Flags().GetBool("parse"); parse {
				text := strings.Join(args, " ")
				res, err := resolver.New(nil, nil).Resolve(cmd.Context(), pos, text, nil)
				if err != nil {
					return err
				}
				m, _ := xiangqi.ParseMove(res.Move)
				payload := xqdto.ParseMoveResponse{Move: res.Move, Notation: xiangqi.Notation(m, pos), Method: string(res.Method)}
				return p.Show(fmt.Sprintf("%s %s", payload.Move, payload.Notation), payload)
			}

			line := xiangqi.NotationLine(pos, args)
			if len(line) < len(args) {
				return fmt.Errorf("move %d (%s): %w", len(line), args[len(line)], xiangqi.ErrIllegalMove)
			}
			return p.Show(strings.Join(line, " "), line)
		},
	}
	cmd.Flags().String("fen", "", "Position before the first move (default: starting position)")
	cmd.Flags().Bool("parse", false, "Read traditional notation and print the machine move")
	return cmd
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/circuit-mixer/pkg/errors"
)

var evalCmd = &cobra.Command{
	Use:     "eval <circuit.json> <bits>",
	Aliases: []string{"6"},
	Short:   "Evaluate a JSON circuit on a comma-separated 0/1 input",
	Long: `Run the circuit on the given input vector and print the output bits,
least-significant wire first, e.g.:

  circuit-mixer eval ./mixed.json 0,1,0,1,1,0,0,1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		circuit, err := readJSONCircuit(args[0])
		if err != nil {
			return err
		}

		parts := strings.Split(args[1], ",")
		if len(parts) != circuit.N {
			return errors.Newf(errors.CodeInvalidInput,
				"unexpected number of inputs: expected %d got %d", circuit.N, len(parts))
		}
		state := make([]bool, circuit.N)
		for i, p := range parts {
			switch strings.TrimSpace(p) {
			case "0":
				state[i] = false
			case "1":
				state[i] = true
			default:
				return errors.Newf(errors.CodeInvalidInput, "expected 0 or 1 but got %q", p)
			}
		}

		circuit.Run(state)

		out := make([]string, circuit.N)
		for i, bit := range state {
			if bit {
				out[i] = "1"
			} else {
				out[i] = "0"
			}
		}
		fmt.Println(strings.Join(out, ","))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

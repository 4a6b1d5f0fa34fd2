package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/utils"
)

// isJSONFile checks the file extension, which is how the CLI distinguishes
// the JSON interchange form from binary circuit files.
func isJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// readJSONCircuit loads a circuit from its JSON form, naming the offending
// argument on failure.
func readJSONCircuit(path string) (*model.Circuit, error) {
	if !isJSONFile(path) {
		return nil, errors.Newf(errors.CodeInvalidInput, "%s is not a circuit JSON file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeIOError, fmt.Sprintf("reading %s", path), err)
	}
	c, err := model.UnmarshalPretty(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, fmt.Sprintf("parsing %s", path), err)
	}
	return c, nil
}

var equivCmd = &cobra.Command{
	Use:     "equiv <circuit0.json> <circuit1.json> [iterations]",
	Aliases: []string{"5"},
	Short:   "Check functional equivalence of two JSON circuits",
	Args:    cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c0, err := readJSONCircuit(args[0])
		if err != nil {
			return err
		}
		c1, err := readJSONCircuit(args[1])
		if err != nil {
			return err
		}

		iterations := 1000
		if len(args) == 3 {
			iterations, err = strconv.Atoi(args[2])
			if err != nil || iterations < 1 {
				return errInvalidFlag("iterations", args[2])
			}
		}

		ok, diff := model.CheckEquivalence(c0, c1, iterations, utils.NewEntropyRand())
		if !ok {
			return errors.Newf(errors.CodeEquivalenceFailure,
				"equivalence check failed, differing output wires %v", diff)
		}
		fmt.Printf("circuit 0, circuit 1 equivalence check with %d iterations is success\n", iterations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(equivCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/circuit-mixer/internal/mixer"
	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/utils"
)

var verifyCmd = &cobra.Command{
	Use:     "verify <job-path> [iterations]",
	Aliases: []string{"2"},
	Short:   "Probabilistically verify a persisted job",
	Long: `Check that the job's current circuit still computes the same permutation
as its original circuit. Wire counts within the packed-evaluator limit are
checked exhaustively; wider circuits are sampled for the given number of
iterations (default 1000).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := mixer.Load(args[0])
		if err != nil {
			return err
		}

		iterations := 1000
		if len(args) == 2 {
			iterations, err = strconv.Atoi(args[1])
			if err != nil || iterations < 1 {
				return errInvalidFlag("iterations", args[1])
			}
		}

		ok, diff := model.CheckEquivalence(job.Original, job.Current, iterations, utils.NewEntropyRand())
		if !ok {
			return errors.Newf(errors.CodeEquivalenceFailure,
				"job verification failed, differing output wires %v", diff)
		}
		fmt.Printf("job verification with %d iterations is success\n", iterations)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/circuit-mixer/internal/mixer"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/writer"
)

var convertCircuitCmd = &cobra.Command{
	Use:     "convert-circuit <binary-circuit-path> <json-output-path>",
	Aliases: []string{"3"},
	Short:   "Convert a binary circuit file to JSON",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		circuit, err := mixer.ReadCircuitFile(args[0])
		if err != nil {
			return err
		}
		return writePrettyCircuit(circuit, args[1])
	},
}

var convertJobCmd = &cobra.Command{
	Use:     "convert-job <job-path> <json-output-path>",
	Aliases: []string{"4"},
	Short:   "Export a job's current circuit as JSON",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := mixer.Load(args[0])
		if err != nil {
			return err
		}
		return writePrettyCircuit(job.Current, args[1])
	},
}

// writePrettyCircuit exports a circuit in the JSON interchange form.
func writePrettyCircuit(c *model.Circuit, path string) error {
	pretty, err := model.ToPretty(c)
	if err != nil {
		return err
	}
	return writer.NewPrettyJSONWriter[*model.PrettyCircuit]().WriteToFile(pretty, path)
}

func init() {
	rootCmd.AddCommand(convertCircuitCmd)
	rootCmd.AddCommand(convertJobCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyr-lang/zephyr/internal/table"
)

var infoCmd = &cobra.Command{
	Use:   "info <unit-file>",
	Short: "Summarize a serialized bytecode unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := loadUnit(args[0])
		if err != nil {
			return err
		}
		name := unit.Name()
		if name == "" {
			name = "<anonymous>"
		}
		stats := unit.Stats()
		fmt.Printf("unit %s (%s)\n", name, unit.ID())
		table.NewTable(os.Stdout).
			WithHeader([]string{"METRIC", "VALUE"}).
			WithColumnAlignment([]table.Alignment{table.AlignLeft, table.AlignRight}).
			WithRows([][]string{
				{"code bytes", fmt.Sprintf("%d", stats.CodeBytes)},
				{"constants", fmt.Sprintf("%d", stats.ConstantCount)},
				{"bindings", fmt.Sprintf("%d", stats.BindingCount)},
				{"handlers", fmt.Sprintf("%d", stats.HandlerCount)},
				{"nested units", fmt.Sprintf("%d", stats.NestedUnits)},
				{"big integers", fmt.Sprintf("%d", stats.BigIntCount)},
				{"parameters", fmt.Sprintf("%d", unit.ParameterLength())},
				{"registers", fmt.Sprintf("%d", unit.RegisterCount())},
				{"this mode", unit.ThisMode().String()},
			}).
			Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

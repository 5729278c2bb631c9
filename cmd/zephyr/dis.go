package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/dis"
)

var disCmd = &cobra.Command{
	Use:   "dis <unit-file>",
	Short: "Disassemble a serialized bytecode unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := loadUnit(args[0])
		if err != nil {
			return err
		}
		if funcName, _ := cmd.Flags().GetString("func"); funcName != "" {
			target := findUnit(unit, funcName)
			if target == nil {
				return fmt.Errorf("function %q not found", funcName)
			}
			unit = target
		}
		return dis.PrintUnit(unit, os.Stdout)
	},
}

func init() {
	disCmd.Flags().String("func", "", "Disassemble only the named nested function")
	rootCmd.AddCommand(disCmd)
}

// findUnit searches the unit and its nested units for a function by name.
func findUnit(unit *bytecode.Unit, name string) *bytecode.Unit {
	if unit.Name() == name {
		return unit
	}
	for i := 0; i < unit.ConstantCount(); i++ {
		if child, ok := unit.ConstantAt(i).(*bytecode.Unit); ok {
			if found := findUnit(child, name); found != nil {
				return found
			}
		}
	}
	return nil
}

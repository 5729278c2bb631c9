package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zephyr-lang/zephyr/bytecode"
	"github.com/zephyr-lang/zephyr/errz"
	"github.com/zephyr-lang/zephyr/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <unit-file>",
	Short: "Execute a serialized bytecode unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := loadUnit(args[0])
		if err != nil {
			return err
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		maxDepth, _ := cmd.Flags().GetInt("max-call-depth")
		maxInstr, _ := cmd.Flags().GetInt64("max-instructions")
		opts := []vm.Option{
			vm.WithRuntimeLimits(vm.RuntimeLimits{
				CallDepth:    maxDepth,
				Instructions: maxInstr,
			}),
		}
		if trace, _ := cmd.Flags().GetBool("trace"); trace {
			opts = append(opts, vm.WithObserver(vm.NewTraceObserver(log.Logger)))
		}

		machine := vm.New(opts...)
		start := time.Now()
		result, err := machine.Run(ctx, unit)
		if err != nil {
			var e *errz.Error
			if errors.As(err, &e) {
				return fmt.Errorf("%s", e.FriendlyMessage())
			}
			return err
		}
		log.Debug().Dur("elapsed", time.Since(start)).Msg("execution complete")
		fmt.Println(result.Inspect())
		return nil
	},
}

func init() {
	runCmd.Flags().Duration("timeout", 0, "Abort execution after this duration")
	runCmd.Flags().Int("max-call-depth", 0, "Limit on nested function calls")
	runCmd.Flags().Int64("max-instructions", 0, "Limit on executed instructions")
	runCmd.Flags().Bool("trace", false, "Log every instruction at trace level")
	rootCmd.AddCommand(runCmd)
}

func loadUnit(path string) (*bytecode.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	unit, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return unit, nil
}

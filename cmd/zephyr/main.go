package main

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "zephyr",
	Short:   "Execute and inspect Zephyr bytecode units",
	Version: version + " (" + commit + ")",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("no-color") || !isatty.IsTerminal(os.Stdout.Fd()) {
			color.NoColor = true
		}
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.Bool("no-color", false, "Disable colored output")
	_ = viper.BindPFlag("log-level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("no-color", flags.Lookup("no-color"))
	viper.SetEnvPrefix("zephyr")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func printError(msg string) {
	if !color.NoColor && isatty.IsTerminal(os.Stderr.Fd()) {
		msg = color.RedString(msg)
	}
	os.Stderr.WriteString(msg + "\n")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	batterycmd "github.com/Alijeyrad/assessflow/cmd/battery"
	httpcmd "github.com/Alijeyrad/assessflow/cmd/http"
	systemcmd "github.com/Alijeyrad/assessflow/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "assessflow",
	Short: "Assessment console service for running athlete test batteries.",
	Long: `AssessFlow drives assessors through single and group assessment sessions
(OnBaseU, Pitcher OnBaseU, TPI Power, Sprint and KAMS) and records the results
in the assessment backend.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(batterycmd.NewBatteryCommand())
}

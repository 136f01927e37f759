package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	projectDir string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fluxion",
	Short: "Fluxion - a Python document model and hover server",
	Long: `Fluxion keeps an in-memory model of open Python files (text, lines,
syntax and top-level symbols) and answers hover queries over the
Language Server Protocol.

Configuration is read from .fluxion/config.yml in the project directory
and FLUXION_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", "", "project directory holding .fluxion/ (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	// Bind flags to viper
	viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig resolves the project directory.
func initConfig() {
	viper.SetEnvPrefix("FLUXION")
	viper.BindEnv("dir")

	projectDir = viper.GetString("dir")
	verbose = viper.GetBool("verbose")
	if projectDir != "" {
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	projectDir = wd
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jmjcoke/quorum/internal/model"
)

var (
	cfgFile string
	verbose bool
	preset  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Quorum - multi-provider LLM consensus for electrical drawings",
	Long: `Quorum reconciles noisy component identifications from multiple LLM
providers analyzing the same electrical drawing.

It measures cross-provider agreement, clusters identifications spatially
and semantically, votes on disputed types and properties, and reports a
single consensus with calibrated confidence and uncertainty bounds.

Quorum reports agreement, not ground truth: a confident consensus means
the providers concur, not that the drawing was read correctly.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("quorum v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.quorum/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "configuration preset (default, high_precision, fast)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("preset", rootCmd.PersistentFlags().Lookup("preset"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.quorum")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match QUORUM_*
	viper.SetEnvPrefix("QUORUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective configuration: preset base, then config
// file and environment overrides. An invalid configuration is an error, with
// every violation listed.
func loadConfig() (*model.Config, error) {
	name := preset
	if name == "" {
		name = viper.GetString("preset")
	}
	cfg, err := model.PresetConfig(name)
	if err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if validation := cfg.Validate(); !validation.Valid {
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(validation.Errors, "\n  "))
	}
	return cfg, nil
}

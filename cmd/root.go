package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gosph",
	Short: "Distributed SPH density/gradient core",
	Long: `gosph runs the neighbour-finding density loop with adaptive
smoothing-length determination, and the coupled gradient reconstruction
loop, over a synthetic or externally supplied particle set.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sph.yaml)")
}

// initConfig reads in a config file and environment variables, following
// viper's own recommended wiring: an explicit --config flag takes
// precedence, otherwise fall back to $HOME/.sph.yaml.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".sph")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SPH")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/spf13/cobra"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// These global variables can be configured with the corresponding lowercase flag
var (
	Verbose string // Verbose defines the logging level, either trace, debug, info, error, fatal
	Output  string // Output defines the output format, either pretty, text, json
	Quiet   bool   // Quiet hides the config file notice on startup

	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kitehttp",
	Short: "kitehttp sends raw HTTP/1.1 requests over pooled connections",
	Long: `kitehttp is a small HTTP/1.1 client that frames requests itself
and keeps connections alive between requests to the same host`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initLogging)
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kitehttp.yaml)")

	rootCmd.PersistentFlags().StringVarP(&Verbose, "verbose", "v", "info", "level of logging verbosity. can be error,info,debug,trace")
	rootCmd.PersistentFlags().StringVarP(&Output, "output", "o", "pretty", "output format. can be json,text,pretty")
	rootCmd.PersistentFlags().BoolVarP(&Quiet, "quiet", "q", false, "quiet mode. will mute unnecessary text")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initLogging() {
	if err := log.SetFormat(viper.GetString("output")); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logging")
	}

	level := viper.GetString("verbose")
	if level != "" {
		if err := log.SetLevelString(level); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize logging")
		}
	}
	log.Debug().Str("level", level).Str("format", viper.GetString("output")).Msg("custom log settings")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigName(".kitehttp")
	}

	viper.SetEnvPrefix("kitehttp")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// httpConfig returns the client config from the "http" section of the config file over the defaults
func httpConfig() (http.Config, error) {
	cfg := http.NewDefaultConfig()
	if err := viper.UnmarshalKey("http", cfg); err != nil {
		return *cfg, fmt.Errorf("failed to read http config: %w", err)
	}
	return *cfg, nil
}

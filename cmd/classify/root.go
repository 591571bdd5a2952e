package cmd

import (
	"fmt"
	"os"
	"strings"

	// Subcommands
	apiKey "github.com/cozy-creator/classify-server/cmd/classify/apikey"
	db "github.com/cozy-creator/classify-server/cmd/classify/db"
	model "github.com/cozy-creator/classify-server/cmd/classify/model"
	run "github.com/cozy-creator/classify-server/cmd/classify/run"
	"github.com/cozy-creator/classify-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "classify",
	Short: "Image classification server",
	Long:  "Serves top-k image classifications from an ONNX model over HTTP, with tooling to inspect and move model artifacts",

	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(config.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`, // convert hyphens to underscores
			`.`, `_`, // convert dots to underscores
		))
		viper.AutomaticEnv()

		// Load config and env files
		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("home-dir", "", "Path to the classify home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")

	viper.BindPFlag("home_dir", pflags.Lookup("home-dir"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))

	Cmd.AddCommand(run.Cmd, model.Cmd, apiKey.Cmd, db.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RegisterFlags adds the flags shared by every command.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "config file path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

// RegisterClientFlags adds the upload client flags to cmd.
func RegisterClientFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP("endpoint", "e", "", "agent upload URL")
	flags.Bool("no-progress", false, "disable progress bar")

	viper.BindPFlag("client.endpoint", flags.Lookup("endpoint"))
	viper.BindPFlag("client.no_progress", flags.Lookup("no-progress"))
}

// RegisterAgentFlags adds the agent flags to cmd.
func RegisterAgentFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.IntP("port", "p", 0, "port to listen on")
	flags.String("upload-dir", "", "directory to store uploaded files in")
	flags.String("default-opener", "", "application used when no opener matches")

	viper.BindPFlag("agent.port", flags.Lookup("port"))
	viper.BindPFlag("agent.upload_dir", flags.Lookup("upload-dir"))
	viper.BindPFlag("agent.default_opener", flags.Lookup("default-opener"))
}

func GetConfigFile(cmd *cobra.Command) string {
	configFile, _ := cmd.Flags().GetString("config")
	return configFile
}

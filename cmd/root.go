package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/krau/fileopener/cmd/serve"
	"github.com/krau/fileopener/cmd/upload"
	"github.com/krau/fileopener/config"
	"github.com/krau/fileopener/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "fileopener",
	Short:         "upload files to a local agent that opens them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := config.Init(ctx, config.GetConfigFile(cmd)); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		l := logger.New(os.Stderr, config.C().Log.Level)
		cmd.SetContext(log.WithContext(ctx, l))
		return nil
	},
}

func init() {
	config.RegisterFlags(rootCmd)
	upload.Register(rootCmd)
	serve.Register(rootCmd)
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.FromContext(ctx).Error(err)
		os.Exit(1)
	}
}

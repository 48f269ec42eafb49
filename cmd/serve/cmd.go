package serve

import (
	"github.com/charmbracelet/log"
	"github.com/krau/fileopener/agent"
	"github.com/krau/fileopener/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"agent"},
	Short:   "run the local agent that stores and opens uploaded files",
	RunE:    Serve,
}

func Register(root *cobra.Command) {
	config.RegisterAgentFlags(serveCmd)
	root.AddCommand(serveCmd)
}

func Serve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.C().Agent

	opener := agent.NewExecOpener(cfg.OpenerExtensions(), cfg.DefaultOpener)
	srv, err := agent.NewServer(agent.Options{
		Port:              cfg.Port,
		UploadDir:         cfg.UploadDir,
		MaxUploadSize:     cfg.MaxUploadSize,
		AllowedExtensions: cfg.DottedAllowedExtensions(),
	}, opener, log.FromContext(ctx))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

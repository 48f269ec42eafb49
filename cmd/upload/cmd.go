package upload

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/krau/fileopener/config"
	"github.com/krau/fileopener/selection"
	uploader "github.com/krau/fileopener/upload"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "upload a file to the agent and open it there",
	RunE:  Upload,
}

func Register(root *cobra.Command) {
	uploadCmd.Flags().StringP("file", "f", "", "file path to upload, - reads stdin")
	uploadCmd.MarkFlagRequired("file")
	uploadCmd.Flags().String("name", "stdin", "file name sent when reading stdin")
	config.RegisterClientFlags(uploadCmd)
	root.AddCommand(uploadCmd)
}

func Upload(cmd *cobra.Command, args []string) error {
	fp, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	stdinName, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := log.FromContext(ctx)

	var file *selection.File
	if fp == "-" {
		file = selection.FromReader(stdinName, os.Stdin, selection.UnknownSize)
	} else {
		file, err = selection.Open(fp)
		if err != nil {
			return fmt.Errorf("failed to select file: %w", err)
		}
	}

	cfg := config.C().Client
	showProgress := !cfg.NoProgress && term.IsTerminal(int(os.Stdout.Fd()))

	var progressUI *UploadProgress
	opts := []uploader.Option{uploader.WithEndpoint(cfg.Endpoint)}
	if showProgress {
		progressUI = NewUploadProgress(ctx, file.Name, file.Size)
		opts = append(opts, uploader.WithObserver(progressUI.Update))
	}
	ctrl := uploader.NewController(opts...)

	// observers block until the UI loop receives, so it runs before any state change
	if progressUI != nil {
		progressUI.Start()
	}

	holder := selection.NewHolder()
	holder.OnSelect(ctrl.Prepare)
	holder.Select(file)

	logger.Info("Uploading file...", "file", file.Name, "type", file.MIME, "to", ctrl.Endpoint())
	att, err := ctrl.Start(ctx, holder.Current())
	if err != nil {
		if progressUI != nil {
			progressUI.Quit()
			progressUI.Wait()
		}
		return err
	}

	<-att.Done()
	if progressUI != nil {
		progressUI.Wait()
	}

	res := att.Result()
	if res.Phase() != uploader.PhaseSucceeded {
		return fmt.Errorf("upload failed: %w", res.Err())
	}
	logger.Info("File uploaded successfully", "path", res.FilePath(), "request_id", att.RequestID())
	return nil
}

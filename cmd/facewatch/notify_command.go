package main

import (
	"errors"
	"fmt"

	"facewatch/internal/config"
	"facewatch/internal/service/alert"

	"github.com/spf13/cobra"
)

func newNotifyTestCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test alert notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.NtfyTopic == "" {
				return errors.New("NTFY_TOPIC is not set")
			}
			if err := alert.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}

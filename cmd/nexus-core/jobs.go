package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus-core/internal/config"
	"github.com/haasonsaas/nexus-core/internal/store"
	"github.com/haasonsaas/nexus-core/internal/tools"
)

func newJobsCommand() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List scheduled reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			jobs, err := st.ListJobs(chatID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tools.FormatJobList(jobs))
			return nil
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "limit to one chat id")
	return cmd
}

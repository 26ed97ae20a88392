package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Sync one job with the executor and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, _ := cmd.Flags().GetString("job")
		owner, _ := cmd.Flags().GetString("owner")

		c, err := setup(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		view, err := c.service.GetJob(cmd.Context(), jobID, owner)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	addConfigFlags(reconcileCmd.Flags())
	reconcileCmd.Flags().String("job", "", "job id")
	reconcileCmd.Flags().String("owner", "", "owner id")
	_ = reconcileCmd.MarkFlagRequired("job")
	_ = reconcileCmd.MarkFlagRequired("owner")
}

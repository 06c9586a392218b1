package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/systematicfunnels/smartX-v0.1/internal/cli/client"
)

// NewCancelCommand creates the cancel command
func NewCancelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a job's pending tasks",
		Run:   runCancel,
	}

	cmd.Flags().StringP("id", "i", "", "Job ID (required)")
	cmd.MarkFlagRequired("id")

	return cmd
}

func runCancel(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")

	resp, err := client.SendRequest(http.MethodPost, "/job/"+id+"/cancel", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	printResponse(resp)
}

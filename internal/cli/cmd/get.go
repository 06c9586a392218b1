package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/systematicfunnels/smartX-v0.1/internal/cli/client"
)

// NewGetCommand creates the get command
func NewGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a job's status and result",
		Run:   runGet,
	}

	cmd.Flags().StringP("id", "i", "", "Job ID (required)")
	cmd.MarkFlagRequired("id")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")

	resp, err := client.SendRequest(http.MethodGet, "/job/"+id, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	printResponse(resp)
}

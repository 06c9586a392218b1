package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/systematicfunnels/smartX-v0.1/internal/cli/client"
)

// NewTasksCommand creates the tasks command
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks of a job",
		Run:   runTasks,
	}

	cmd.Flags().StringP("id", "i", "", "Job ID (required)")
	cmd.MarkFlagRequired("id")

	return cmd
}

func runTasks(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")

	resp, err := client.SendRequest(http.MethodGet, "/job/"+id+"/tasks", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	printResponse(resp)
}

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systematicfunnels/smartX-v0.1/internal/cli/client"
	"github.com/systematicfunnels/smartX-v0.1/pkg/api"
)

// NewSubmitCommand creates the submit command
func NewSubmitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a pipeline job",
		Run:   runSubmit,
	}

	cmd.Flags().StringP("type", "t", "", "Pipeline type: MEETING_PIPELINE, DOCUMENT_PIPELINE or CODE_PIPELINE (required)")
	cmd.Flags().StringP("project", "j", "", "Project ID (required)")
	cmd.Flags().StringP("payload", "p", "", "Pipeline payload as JSON, or @file to read from a file (required)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("payload")

	return cmd
}

func runSubmit(cmd *cobra.Command, args []string) {
	jobType, _ := cmd.Flags().GetString("type")
	project, _ := cmd.Flags().GetString("project")
	payload, _ := cmd.Flags().GetString("payload")

	if strings.HasPrefix(payload, "@") {
		raw, err := os.ReadFile(strings.TrimPrefix(payload, "@"))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		payload = string(raw)
	}

	req := api.SubmitJobRequest{
		Type:      jobType,
		ProjectID: project,
		Payload:   json.RawMessage(payload),
	}
	jsonData, err := json.Marshal(req)
	if err != nil {
		fmt.Printf("Error: Failed to serialize data - %v\n", err)
		return
	}

	resp, err := client.SendRequest(http.MethodPost, "/job", bytes.NewBuffer(jsonData))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	printResponse(resp)
}

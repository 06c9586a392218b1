package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/systematicfunnels/smartX-v0.1/internal/cli/client"
)

// printResponse pretty-prints a JSON response body, falling back to the
// raw bytes when the body is not valid JSON.
func printResponse(resp *http.Response) {
	body, err := client.ReadResponseBody(resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: request failed - %s\n%s\n", resp.Status, string(body))
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

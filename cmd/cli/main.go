package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systematicfunnels/smartX-v0.1/internal/cli/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smartx-cli",
		Short: "Admin CLI for the smartX pipeline server",
	}
	cmd.RegisterCommands(rootCmd)

	if len(os.Args) > 1 {
		rootCmd.SetArgs(os.Args[1:])
		if err := rootCmd.Execute(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// no args: interactive session, so the login token survives between
	// commands
	startInteractiveMode(rootCmd)
}

func startInteractiveMode(rootCmd *cobra.Command) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("SmartX CLI - Type 'help' to show help, 'exit' or 'quit' to quit")
	fmt.Print(">> ")

	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "exit", "quit":
			return
		case "":
			fmt.Print(">> ")
			continue
		case "help":
			rootCmd.Help()
			fmt.Print(">> ")
			continue
		}

		rootCmd.SetArgs(strings.Fields(input))
		if err := rootCmd.Execute(); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		fmt.Print(">> ")
	}
}

// Package main provides the adminctl CLI for managing the Supplydesk
// administrator roster without going through the API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"supplydesk/internal/adminreg"
)

var (
	// adminFile is set by the --file flag.
	adminFile string

	registry *adminreg.Registry
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Manage the Supplydesk administrator roster",
	Long: `Adminctl edits the administrator registry file used by the Supplydesk
server. The file is a dotenv document carrying a single ADMIN_USERNAMES
line; edits made here are visible to a running server on its next read.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		registry = adminreg.NewRegistry(adminFile)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminFile, "file", "data/admins.env", "path to the administrator registry file")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered administrators",
	RunE: func(cmd *cobra.Command, args []string) error {
		admins := registry.List()
		if len(admins) == 0 {
			fmt.Println("No administrators registered")
			return nil
		}
		for _, name := range admins {
			fmt.Println(name)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add an administrator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, admins, err := registry.Add(args[0])
		if err != nil {
			return fmt.Errorf("add administrator: %w", err)
		}
		if result == adminreg.ResultAlreadyMember {
			fmt.Printf("%s is already an administrator\n", args[0])
			return nil
		}
		fmt.Printf("Added %s (%d administrators)\n", args[0], len(admins))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove an administrator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, admins, err := registry.Remove(args[0])
		if err != nil {
			return fmt.Errorf("remove administrator: %w", err)
		}
		if result == adminreg.ResultNotFound {
			fmt.Printf("%s is not an administrator\n", args[0])
			return nil
		}
		fmt.Printf("Removed %s (%d administrators)\n", args[0], len(admins))
		return nil
	},
}

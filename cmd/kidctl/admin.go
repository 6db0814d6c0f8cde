package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin API helpers",
	}

	hashKey := &cobra.Command{
		Use:   "hash-key [KEY]",
		Short: "Print the bcrypt hash of an admin key for KIDVENTURE_ADMIN_KEY_HASH",
		Long:  "Print the bcrypt hash of an admin key. The key is read from stdin when not given as an argument.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = strings.TrimSpace(line)
			}
			if len(key) < 12 {
				return fmt.Errorf("admin key must be at least 12 characters")
			}

			cost, _ := cmd.Flags().GetInt("cost")
			hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	hashKey.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost")

	cmd.AddCommand(hashKey)
	return cmd
}

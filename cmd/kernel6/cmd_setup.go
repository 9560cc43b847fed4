package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/kernel6/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("kernel6 Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token", cfg.Telegram.Token)
		cfg.Telegram.Mode = prompt(scanner, "Telegram mode (polling|webhook)", cfg.Telegram.Mode)
		if cfg.Telegram.Mode == config.ModeWebhook {
			cfg.Telegram.WebhookURL = prompt(scanner, "Public webhook base URL", cfg.Telegram.WebhookURL)
			cfg.HTTP.Enabled = true
			cfg.HTTP.Listen = prompt(scanner, "HTTP listen address", cfg.HTTP.Listen)
		}

		cfg.Store.Backend = prompt(scanner, "Store backend (auto|gist|file|memory)", cfg.Store.Backend)
		if cfg.Store.Backend == config.BackendAuto || cfg.Store.Backend == config.BackendGist {
			cfg.Gist.Token = prompt(scanner, "GitHub token with gist scope (optional)", cfg.Gist.Token)
			cfg.Gist.ID = prompt(scanner, "Gist ID (optional)", cfg.Gist.ID)
		}
		cfg.Store.DeletePolicy = prompt(scanner, "Delete policy (optimistic|fail_closed)", cfg.Store.DeletePolicy)

		cfg.Admin.Password = prompt(scanner, "Admin password for deletions", cfg.Admin.Password)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

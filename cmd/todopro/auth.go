package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/todopro/todopro-cli/internal/remote"
	"github.com/todopro/todopro-cli/internal/ui"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	GroupID: "sync",
	Short:   "Authenticate against the todopro service",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store an API token in the profile",
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()

		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		email, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading email: %v\n", err)
			os.Exit(1)
		}
		email = strings.TrimSpace(email)

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
			os.Exit(1)
		}

		client := remote.NewClient(p.Config.API.Endpoint, "", p.APITimeout(), newLogger(p, "[api] "))
		token, err := client.Login(context.Background(), email, string(password))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := p.SaveToken(token); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving token: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Logged in as %s (profile %s)\n", ui.RenderPass("✓"), email, p.Name)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored API token",
	Run: func(cmd *cobra.Command, args []string) {
		p := loadProfile()
		if err := p.SaveToken(""); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing token: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Logged out (profile %s)\n", ui.RenderPass("✓"), p.Name)
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
}

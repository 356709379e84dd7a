package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/clipmd/internal/auth"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to X and save the session",
	Long: `Open a browser window for X login and save the session cookies.

Cookies are stored in ~/.clipmd/cookies.json unless auth.dir is configured.
Setting X_AUTH_COOKIES to a JSON cookie array skips the stored file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved X session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	_, err := login(ctx, cfg, auth.NewStore(cfg.Auth.Dir))
	return err
}

func runLogout(cmd *cobra.Command, args []string) error {
	store := auth.NewStore(GetConfig().Auth.Dir)
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Printf("Removed session %s\n", store.Path())
	return nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"taskdeck/internal/domain"

	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authUsername string
	authPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		req := &domain.RegisterRequest{
			Username: authUsername,
			Email:    authEmail,
			Password: password,
		}
		return withAuthSession(cmd, func(ctx context.Context, s *session) (*domain.AuthResponse, error) {
			return s.client.Register(ctx, req)
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and replay any queued changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		req := &domain.LoginRequest{Email: authEmail, Password: password}
		return withAuthSession(cmd, func(ctx context.Context, s *session) (*domain.AuthResponse, error) {
			return s.client.Login(ctx, req)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Long: `Forget the stored session. The local cache and any queued changes are
kept and replay after the next login.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		if s.creds.Token != "" {
			if err := s.client.Logout(ctx); err != nil {
				s.logger.Printf("[taskdeck] logout request failed: %v", err)
			}
		}
		if err := s.signOut(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, s *session) error {
			user, err := s.client.Me(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", user.Username, user.Email, user.Role)
			return nil
		})
	},
}

func init() {
	registerCmd.Flags().StringVar(&authUsername, "username", "", "user name")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "email address")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "password (read from stdin when empty)")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringVar(&authEmail, "email", "", "email address")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "password (read from stdin when empty)")
	loginCmd.MarkFlagRequired("email")
}

// withAuthSession runs an authentication call against a reachable server,
// stores the resulting credentials and replays the local queues.
func withAuthSession(cmd *cobra.Command, call func(ctx context.Context, s *session) (*domain.AuthResponse, error)) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	if err := s.client.Ping(ctx); err != nil {
		return fmt.Errorf("server %s is unreachable: %w", cfg.ServerURL, err)
	}

	resp, err := call(ctx, s)
	if err != nil {
		return err
	}
	if err := s.signIn(resp); err != nil {
		return err
	}
	s.monitor.Set(true)

	if flagJSON {
		return printJSON(cmd, resp.User)
	}
	if resp.User != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", resp.User.Username)
	}
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

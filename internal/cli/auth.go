package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go-todo-api/internal/session"
)

func (a *app) registerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if username, err = a.prompt("Username", username); err != nil {
				return err
			}
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if password, err = a.promptSecret("Password", password); err != nil {
				return err
			}
			c, _, err := a.anonymous()
			if err != nil {
				return err
			}
			user, err := c.Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s (%s). Run `todo login` to sign in.\n", user.Username, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email, err = a.prompt("Email", email); err != nil {
				return err
			}
			if password, err = a.promptSecret("Password", password); err != nil {
				return err
			}
			c, store, err := a.anonymous()
			if err != nil {
				return err
			}
			s, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			sess := &session.Session{
				Server:    c.BaseURL(),
				Token:     s.Token,
				UserID:    s.UserID,
				Email:     email,
				ExpiresAt: s.ExpiresAt,
			}
			if err := store.Save(sess); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (session expires %s)\n", email, s.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%s) on %s\n", me.Email, me.UserID, c.BaseURL())
			return nil
		},
	}
}

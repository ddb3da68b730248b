package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/goliatone/go-agent-auth/client"
	"github.com/goliatone/go-agent-auth/client/tokenstore"
)

type cli struct {
	serverURL string
	storePath string
	out       io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{out: os.Stdout}

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Command line client for the agents API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serverDefault := os.Getenv("AGENTCTL_SERVER")
	if serverDefault == "" {
		serverDefault = client.DefaultBaseURL
	}

	root.PersistentFlags().StringVar(&c.serverURL, "server", serverDefault, "API base URL")
	root.PersistentFlags().StringVar(&c.storePath, "store", tokenstore.DefaultPath(), "session store file")

	root.AddCommand(
		c.registerCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		c.meCommand(),
		c.usersCommand(),
		c.agentsCommand(),
		c.sessionsCommand(),
	)

	return root
}

func (c *cli) api() *client.Client {
	return client.New(c.serverURL)
}

func (c *cli) registerCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			user, err := c.api().Register(cmd.Context(), email, pw)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "registered user %d <%s>\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password, prompted when empty")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (c *cli) loginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			result, err := c.api().Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}

			store, err := tokenstore.Open(c.storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.Save(&tokenstore.Session{
				BaseURL:   c.serverURL,
				Token:     result.AccessToken.Token,
				TokenType: result.AccessToken.TokenType,
				User:      result.User,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "logged in as %s\n", result.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password, prompted when empty")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := tokenstore.Open(c.storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := store.Load()
			if err != nil {
				return err
			}

			confirmation, err := c.api().Logout(cmd.Context(), session.Token)
			// the token is useless once rejected, drop it either way
			if delErr := store.Delete(); delErr != nil {
				return delErr
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "%s: %s\n", confirmation.Message, confirmation.Detail)
			return nil
		},
	}
}

func (c *cli) meCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := c.token()
			if err != nil {
				return err
			}

			user, err := c.api().Me(cmd.Context(), token)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.out, "%d\t%s\n", user.ID, user.Email)
			return nil
		},
	}
}

func (c *cli) usersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "users [id]",
		Short: "List users or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid user id %q", args[0])
				}
				user, err := c.api().User(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%d\t%s\n", user.ID, user.Email)
				return nil
			}

			list, err := c.api().Users(cmd.Context())
			if err != nil {
				return err
			}
			for _, user := range list.Users {
				fmt.Fprintf(c.out, "%d\t%s\n", user.ID, user.Email)
			}
			return nil
		},
	}
}

func (c *cli) agentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the available agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalogue, err := c.api().Agents(cmd.Context())
			if err != nil {
				return err
			}
			for _, agent := range catalogue.Agents {
				fmt.Fprintf(c.out, "%s\t%s\t%s\n", agent.ID, agent.Name, agent.Tool)
			}
			return nil
		},
	}
}

func (c *cli) sessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <agent-id>",
		Short: "List your chat sessions with an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.token()
			if err != nil {
				return err
			}

			list, err := c.api().Sessions(cmd.Context(), token, args[0])
			if err != nil {
				return err
			}
			for _, s := range list.Sessions {
				fmt.Fprintf(c.out, "%s\t%s\t%d\t%s\n", s.SessionID, s.Title, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func (c *cli) token() (string, error) {
	store, err := tokenstore.Open(c.storePath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	session, err := store.Load()
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotLoggedIn) {
			return "", fmt.Errorf("%w: run agentctl login first", err)
		}
		return "", err
	}
	return session.Token, nil
}

func resolvePassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	password := strings.TrimSpace(string(pw))
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

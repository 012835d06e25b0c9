package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	accountUsername string
	accountEmail    string
	accountPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the diary server",
	Long: `Create an account on a server running with auth.enabled. The password
is prompted for unless --password is given; when stdin is not a terminal it
is read from the first line of stdin.`,
	Example: `  diaryweb register --username ana --email ana@example.com
  echo "$PW" | diaryweb register --username ana --email ana@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		password, err := readPassword(cmd, accountPassword)
		if err != nil {
			return err
		}
		return registerRun(cmd.Context(), cmd.OutOrStdout(), c, accountUsername, accountEmail, password)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save a bearer token",
	Long:  "Exchange credentials for a bearer token and save it (auth.token_file) for later commands.",
	Example: `  diaryweb login --username ana
  echo "$PW" | diaryweb login --username ana`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		password, err := readPassword(cmd, accountPassword)
		if err != nil {
			return err
		}
		return loginRun(cmd.Context(), cmd.OutOrStdout(), c, tokenFile(), accountUsername, password)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved bearer token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tokenFile().Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func registerRun(ctx context.Context, w io.Writer, c *client.Client, username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return userErrorf("--username is required")
	}
	u, err := c.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	if jsonOutput {
		return ui.FormatJSON(w, u)
	}
	fmt.Fprintf(w, "Registered %s (%s). Run \"diaryweb login\" to sign in.\n", u.Username, u.ID)
	return nil
}

func loginRun(ctx context.Context, w io.Writer, c *client.Client, tokens auth.TokenFile, username, password string) error {
	if strings.TrimSpace(username) == "" {
		return userErrorf("--username is required")
	}
	tok, err := c.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := tokens.Save(tok.Token); err != nil {
		return err
	}
	if jsonOutput {
		return ui.FormatJSON(w, tok)
	}
	fmt.Fprintf(w, "Logged in as %s until %s.\n", username, tok.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// readPassword returns flagValue when set, prompts without echo on a
// terminal, and otherwise reads one line from the command's stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&accountUsername, "username", "u", "", "account name")
		c.Flags().StringVar(&accountPassword, "password", "", "password (prompted for when omitted)")
	}
	registerCmd.Flags().StringVar(&accountEmail, "email", "", "contact email")
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd)
}

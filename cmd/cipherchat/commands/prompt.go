package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cipherchat/internal/domain"
)

var stdinReader *bufio.Reader

// readPassword prompts on stderr and reads without echo from a terminal, or
// one line from stdin with --password-stdin.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if pwStdin || !term.IsTerminal(int(os.Stdin.Fd())) {
		if stdinReader == nil {
			stdinReader = bufio.NewReader(cmd.InOrStdin())
		}
		line, err := stdinReader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// usernameFrom returns the first positional argument, or the configured
// username.
func usernameFrom(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if wire.Config.Username != "" {
		return wire.Config.Username, nil
	}
	return "", errors.New("username required (pass it as an argument, --username or CIPHERCHAT_USERNAME)")
}

// login prompts for the configured user's password and starts a session.
func login(cmd *cobra.Command) (domain.AccountInfo, error) {
	if wire.Config.Username == "" {
		return domain.AccountInfo{}, errors.New("--username required")
	}
	pw, err := readPassword(cmd, fmt.Sprintf("Password for %s: ", wire.Config.Username))
	if err != nil {
		return domain.AccountInfo{}, err
	}
	return wire.Identity.Login(cmd.Context(), wire.Config.Username, pw)
}

func printAccount(cmd *cobra.Command, info domain.AccountInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Username:        %s\n", info.Username)
	fmt.Fprintf(out, "Fingerprint:     %s\n", info.Fingerprint)
	fmt.Fprintf(out, "Public key hash: %s\n", info.PublicKeyHash)
}

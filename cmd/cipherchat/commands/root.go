package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cipherchat/internal/app"
)

var (
	v       *viper.Viper
	wire    *app.Wire
	pwStdin bool
)

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	return newRoot().ExecuteContext(ctx)
}

func newRoot() *cobra.Command {
	v = app.NewViper()
	root := &cobra.Command{
		Use:           "cipherchat",
		Short:         "End-to-end encrypted chat CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(v)
			if err != nil {
				return err
			}
			wire, err = app.NewWire(cfg, cmd.ErrOrStderr())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if wire != nil {
				wire.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("home", "", "config dir (default ~/.cipherchat)")
	flags.String("server", "", "server base URL (default http://127.0.0.1:8080)")
	flags.StringP("username", "u", "", "your username")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&pwStdin, "password-stdin", false, "read the password from the first line of stdin")

	_ = v.BindPFlag(app.KeyHome, flags.Lookup("home"))
	_ = v.BindPFlag(app.KeyServer, flags.Lookup("server"))
	_ = v.BindPFlag(app.KeyUsername, flags.Lookup("username"))
	_ = v.BindPFlag(app.KeyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		registerCmd(),
		loginCmd(),
		fingerprintCmd(),
		verifyCmd(),
		channelCmd(),
		sayCmd(),
		sendCmd(),
		listenCmd(),
	)
	return root
}

// Command hsclass classifies products and manages classification history from
// the terminal, using the same configuration as the server.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aconic-ni/customsclass-r/internal/app"
	"github.com/aconic-ni/customsclass-r/internal/config"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	userID     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "hsclass",
		Short:         "HS code classification from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to config.yaml")
	root.PersistentFlags().StringVarP(&opts.userID, "user", "u", "", "user id owning the history")

	root.AddCommand(newClassifyCmd(opts), newHistoryCmd(opts))
	return root
}

// openApp loads the configuration and builds the application for one command.
func openApp(ctx context.Context, opts *rootOptions, appOpts app.Options) (*app.App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, appOpts)
}

func closeApp(ctx context.Context, a *app.App) {
	if err := a.Close(ctx); err != nil {
		logrus.WithError(err).Warn("close application")
	}
}

// Package cli implements the attend cobra commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/attend/internal/api"
	"github.com/example/attend/internal/config"
	"github.com/example/attend/internal/wire"
)

var configPath string

// ConfigFlag registers the persistent --config flag on root.
func ConfigFlag(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.attend/config.yaml or $ATTEND_CONFIG)")
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// openContainer loads the config and wires the application for a
// short-lived command. The caller must Close the container.
func openContainer(cmd *cobra.Command) (*wire.Container, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	c, err := wire.New(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return c, c.Context(cmd.Context()), nil
}

func controlClient() (*api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Control.Listen), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

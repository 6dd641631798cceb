package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smartc/api/apitest"
	"smartc/config"
)

type options struct {
	configFile  string
	logLevel    string
	demoBackend bool
	username    string
	password    string

	conf      config.Config
	logCloser io.Closer
	backend   *apitest.Server
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "smartc",
		Short: "SmaRTC chat and call client",
		Long: `A terminal client for the SmaRTC service: chat in rooms over the
signal hub and manage call sessions through the REST API.

Configuration is read from config/<RUN_MODE>/client.toml or --config, and
SMARTC_* environment variables override any key.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return o.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "c", "", "path to a toml config file")
	pf.StringVar(&o.logLevel, "log-level", "", "override log.level")
	pf.BoolVar(&o.demoBackend, "demo-backend", false, "serve the REST API from an in-process fake backend")
	pf.StringVarP(&o.username, "username", "u", apitest.DemoUser, "account name")
	pf.StringVarP(&o.password, "password", "p", apitest.DemoPassword, "account password")

	root.AddCommand(
		newChatCommand(o),
		newQuickstartCommand(o),
		newSessionsCommand(o),
		newIceCommand(o),
		newHealthCommand(o),
	)
	return root
}

func (o *options) setup() error {
	if err := config.Init(o.configFile); err != nil {
		return err
	}
	o.conf = *config.Conf
	if o.logLevel != "" {
		o.conf.Log.Level = o.logLevel
	}
	closer, err := config.InitLog(o.conf.Log)
	if err != nil {
		return err
	}
	o.logCloser = closer

	if o.demoBackend {
		o.backend = apitest.NewServer()
		o.conf.Api.BaseURL = o.backend.URL
		logrus.WithField("url", o.backend.URL).Info("demo backend started")
	}
	logrus.WithField("mode", config.GetMode()).WithField("api", o.conf.Api.BaseURL).Debug("configuration loaded")
	return nil
}

func (o *options) teardown() error {
	if o.backend != nil {
		o.backend.Close()
	}
	if o.logCloser != nil {
		return o.logCloser.Close()
	}
	return nil
}

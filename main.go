package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohitkumar/loanwizard/agent"
	"github.com/mohitkumar/loanwizard/chat"
	"github.com/mohitkumar/loanwizard/config"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type cli struct {
	cfg config.Config
}

func setupFlags(flags *pflag.FlagSet) {
	flags.String("config-file", "", "Path to config file.")
	flags.String("api-url", "http://localhost:2024", "base url of the conversational workflow service")
	flags.String("assistant-id", "mortgage_processing", "assistant that runs submitted messages")
	flags.String("user-id", "", "user the sessions belong to")
	flags.Duration("poll-interval", time.Second, "wait between run status polls")
	flags.Int("max-poll-attempts", 30, "run status polls before giving up")
	flags.Duration("request-timeout", 30*time.Second, "timeout of a single request to the workflow service")
	flags.Int("history-limit", 0, "messages kept per session, 0 keeps all")
	flags.Duration("state-cache-ttl", 0, "how long thread states stay cached, 0 keeps them")
	flags.Duration("session-refresh-interval", time.Minute, "how often serve reloads the session list, 0 disables it")
	flags.Int("http-port", 8080, "http port for rest endpoints")
	flags.Int("send-queue-capacity", 16, "messages waiting to be sent through the gateway")
	flags.String("storage-impl", "memory", "storage for custom wizard definitions: memory or redis")
	flags.String("redis-addr", "", "comma separated list of redis host:port")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-pool-size", 0, "redis connection pool size")
	flags.String("namespace", "loanwizard", "namespace used in storage")
	flags.String("encoder-decoder", "JSON", "encoder decoder used to serialize definitions")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("analytics-file", "", "file receiving the application audit log")
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	configFile := viper.GetString("config-file")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}
	viper.SetEnvPrefix("LOANWIZARD")
	viper.AutomaticEnv()

	var err error
	c.cfg, err = config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	return logger.Init(c.cfg.LogLevel, c.cfg.LogFormat)
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	agent, err := agent.New(c.cfg)
	if err != nil {
		return err
	}
	if err := agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func (c *cli) chat(cmd *cobra.Command, args []string) error {
	wizardType, err := cmd.Flags().GetString("wizard")
	if err != nil {
		return err
	}
	agent, err := agent.New(c.cfg)
	if err != nil {
		return err
	}
	defer agent.Shutdown()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return chat.NewRepl(agent.Actions(), os.Stdin, cmd.OutOrStdout()).Run(ctx, model.WizardType(wizardType))
}

func (c *cli) wizards(cmd *cobra.Command, args []string) error {
	agent, err := agent.New(c.cfg)
	if err != nil {
		return err
	}
	defer agent.Shutdown()
	defs, err := agent.MetadataService().ListWizardDefinitions()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, def := range defs {
		fmt.Fprintf(out, "%s (%s)\n", def.Title, def.Type)
		for i, step := range def.Steps {
			fmt.Fprintf(out, "  %d. %-24s %3d%%  %s\n", i+1, step.Title, step.TargetProgress, step.Id)
		}
	}
	return nil
}

func main() {
	cli := &cli{}

	root := &cobra.Command{
		Use:               "loanwizard",
		Short:             "Guided mortgage applications over a conversational workflow service",
		PersistentPreRunE: cli.setupConfig,
		SilenceUsage:      true,
	}
	setupFlags(root.PersistentFlags())

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session in the terminal",
		RunE:  cli.chat,
	}
	chatCmd.Flags().String("wizard", "", "wizard type guiding the session")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the REST gateway",
			RunE:  cli.serve,
		},
		chatCmd,
		&cobra.Command{
			Use:   "wizards",
			Short: "List the registered wizards",
			RunE:  cli.wizards,
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

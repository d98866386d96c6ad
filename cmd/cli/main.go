package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keshon/orcabot/internal/app"
	"github.com/keshon/orcabot/internal/config"
	"github.com/keshon/orcabot/internal/console"
	"github.com/keshon/orcabot/internal/logging"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

type options struct {
	guild      string
	channel    string
	user       string
	privileged bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "orcabot-cli",
		Short:        "Run bot commands and inspect guild stores from a terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.guild, "guild", "1", "guild id the commands run in")
	root.PersistentFlags().StringVar(&opts.channel, "channel", "1", "channel id the commands run in")
	root.PersistentFlags().StringVar(&opts.user, "user", "1", "user id of the caller")
	root.PersistentFlags().BoolVar(&opts.privileged, "privileged", false, "give the caller the privileged role")

	root.AddCommand(newExecCommand(opts), newShellCommand(opts), newDumpCommand(opts))
	return root
}

func newExecCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <line>",
		Short: "Run one command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withRunner(c.Context(), opts, func(ctx context.Context, r *console.Runner, caller cmd.Caller) error {
				return r.Exec(ctx, strings.Join(args, " "), caller)
			})
		},
	}
}

func newShellCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Read command lines from stdin until EOF",
		RunE: func(c *cobra.Command, _ []string) error {
			return withRunner(c.Context(), opts, func(ctx context.Context, r *console.Runner, caller cmd.Caller) error {
				sc := bufio.NewScanner(c.InOrStdin())
				for sc.Scan() {
					line := strings.TrimSpace(sc.Text())
					if line == "" {
						continue
					}
					if err := r.Exec(ctx, line, caller); err != nil {
						fmt.Fprintln(c.ErrOrStderr(), err)
					}
				}
				return sc.Err()
			})
		},
	}
}

func newDumpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the stored document of the guild",
		RunE: func(c *cobra.Command, _ []string) error {
			return withRunner(c.Context(), opts, func(ctx context.Context, r *console.Runner, caller cmd.Caller) error {
				id, err := strconv.ParseUint(caller.GuildID, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid guild id: %w", err)
				}
				tenant, err := r.Stores.Get(ctx, id)
				if err != nil {
					return err
				}
				data, err := store.EncodeDocument(tenant.Snapshot())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.OutOrStdout(), string(data))
				return err
			})
		},
	}
}

func withRunner(ctx context.Context, opts *options, fn func(context.Context, *console.Runner, cmd.Caller) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Log.File = ""
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Close(shutdown); err != nil {
			logger.Error("failed to flush stores", zap.Error(err))
		}
	}()

	caller := cmd.Caller{
		UserID:    opts.user,
		UserName:  "console",
		GuildID:   opts.guild,
		ChannelID: opts.channel,
		Admin:     cfg.IsDeveloper(opts.user),
	}
	if opts.privileged {
		caller.Roles = []string{cfg.PrivilegedRole}
	}

	r := &console.Runner{
		Dispatcher:  svc.Dispatcher,
		Stores:      svc.Stores,
		Prefix:      cfg.CommandPrefix,
		MacroPrefix: cfg.MacroPrefix,
		Out:         console.NewWriter(os.Stdout),
	}
	return fn(ctx, r, caller)
}

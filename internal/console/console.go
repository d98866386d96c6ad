// Package console runs bot commands against a terminal instead of Discord.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orcabot/internal/commands"
	"github.com/keshon/orcabot/internal/render"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

// Writer prints replies as plain text.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer { return &Writer{out: out} }

func (w *Writer) Send(_ context.Context, content string, embeds ...*discordgo.MessageEmbed) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if content != "" {
		if _, err := fmt.Fprintln(w.out, content); err != nil {
			return err
		}
	}
	for _, e := range embeds {
		if _, err := fmt.Fprintln(w.out, render.Text(e)); err != nil {
			return err
		}
	}
	return nil
}

// noMessages cannot resolve message links; there is no chat history here.
type noMessages struct{}

func (noMessages) FetchMessage(context.Context, commands.MessageRef) (*commands.Message, error) {
	return nil, commands.ErrMessageNotFound
}

// Runner executes command lines the way the Discord handler does.
type Runner struct {
	Dispatcher  *cmd.Dispatcher
	Stores      *store.Manager
	Prefix      string
	MacroPrefix string
	Out         *Writer
}

// Exec runs one line for caller. The command prefix is optional. A line
// starting with the macro prefix replays the stored macro.
func (r *Runner) Exec(ctx context.Context, line string, caller cmd.Caller) error {
	line = strings.TrimSpace(line)
	if r.MacroPrefix != "" && strings.HasPrefix(line, r.MacroPrefix) {
		return r.macro(ctx, strings.TrimSpace(strings.TrimPrefix(line, r.MacroPrefix)), caller)
	}

	env := &commands.Env{Reply: r.Out, Fetcher: noMessages{}}
	body := strings.TrimPrefix(line, r.Prefix)
	inv := r.Dispatcher.Dispatch(ctx, body, caller, env)
	if inv.Failure == nil {
		return nil
	}
	if errors.Is(inv.Err(), cmd.ErrNoMatch) {
		name, _, _ := strings.Cut(body, " ")
		return fmt.Errorf("unknown command %q, use %shelp", name, r.Prefix)
	}
	return errors.New(cmd.Describe(inv, r.Prefix))
}

func (r *Runner) macro(ctx context.Context, id string, caller cmd.Caller) error {
	if !store.ValidMacroID(id) {
		return fmt.Errorf("%q is not a valid macro name", id)
	}
	guildID, err := strconv.ParseUint(caller.GuildID, 10, 64)
	if err != nil {
		return fmt.Errorf("macros need a guild id: %w", err)
	}
	tenant, err := r.Stores.Get(ctx, guildID)
	if err != nil {
		return err
	}
	m, ok := tenant.Macro(id)
	if !ok {
		return fmt.Errorf("no macro %q stored", id)
	}
	vars := render.Vars{User: "<@" + caller.UserID + ">", Guild: caller.GuildID, Channel: "<#" + caller.ChannelID + ">"}
	return commands.SendMacro(ctx, r.Out, m, vars)
}

package commands

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/orcabot/internal/elite"
	"github.com/keshon/orcabot/internal/store"
	"github.com/keshon/orcabot/pkg/cmd"
)

// DefaultPrivilegedRole may add and remove quotes and macros.
const DefaultPrivilegedRole = "podrole"

// Deps are the shared services the commands run against.
type Deps struct {
	Stores         *store.Manager
	EDSM           *elite.EDSM
	Inara          *elite.Inara
	PrivilegedRole string
	Prefix         string
	// Timeout bounds the execution of every command; zero disables it.
	Timeout time.Duration
	Logger  *zap.Logger
}

// RegisterAll registers every command on registry.
func RegisterAll(registry *cmd.Registry, d Deps) error {
	if d.Stores == nil {
		return fmt.Errorf("register commands: no store manager")
	}
	if d.EDSM == nil {
		return fmt.Errorf("register commands: no EDSM client")
	}
	if d.PrivilegedRole == "" {
		d.PrivilegedRole = DefaultPrivilegedRole
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	mws := []cmd.Middleware{cmd.WithLogger(d.Logger)}
	if d.Timeout > 0 {
		mws = append([]cmd.Middleware{cmd.WithTimeout(d.Timeout)}, mws...)
	}

	for _, c := range []cmd.Command{
		newHelpCommand(registry, d.Prefix),
		newQuoteCommand(d),
		newQuoteAddCommand(d),
		newQuoteRemoveCommand(d),
		newMacroCommand(d),
		newMacroListCommand(d),
		newSystemCommand(d),
		newDistanceCommand(d),
		newCmdrCommand(d),
	} {
		if err := registry.Register(c, mws...); err != nil {
			return err
		}
	}
	return nil
}

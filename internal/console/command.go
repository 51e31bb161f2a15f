// Package console translates line-oriented operator commands into
// simulation control calls.
package console

import (
	"fmt"
	"strconv"
	"strings"

	"assetsim/internal/telemetry"
)

// Kind discriminates the parsed command variants.
type Kind int

const (
	KindEmpty Kind = iota
	KindSwitchMode
	KindStatus
	KindStats
	KindHelp
	KindStop
	KindInvalid
)

// Command is the parsed form of one operator input line. Invalid input
// is a value, not an error: it never disturbs the simulation.
type Command struct {
	Kind   Kind
	Mode   telemetry.Mode // for KindSwitchMode
	Target *int           // 1-based asset number, nil = all assets
	Reason string         // for KindInvalid
}

// Parse interprets one input line. Commands are case-insensitive and
// accept the documented aliases:
//
//	anomaly [#] | a [#]    normal [#] | n [#]
//	status | s             stats
//	help | h | ?           stop | quit | exit | q
func Parse(line string) Command {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return Command{Kind: KindEmpty}
	}

	switch fields[0] {
	case "anomaly", "a":
		return parseSwitch(fields, telemetry.ModeAnomaly)
	case "normal", "n":
		return parseSwitch(fields, telemetry.ModeNormal)
	case "status", "s":
		return Command{Kind: KindStatus}
	case "stats", "statistics":
		return Command{Kind: KindStats}
	case "help", "h", "?":
		return Command{Kind: KindHelp}
	case "stop", "quit", "exit", "q":
		return Command{Kind: KindStop}
	default:
		return Command{Kind: KindInvalid, Reason: fmt.Sprintf("unknown command %q", fields[0])}
	}
}

func parseSwitch(fields []string, mode telemetry.Mode) Command {
	cmd := Command{Kind: KindSwitchMode, Mode: mode}
	if len(fields) == 1 {
		return cmd
	}
	if len(fields) > 2 {
		return Command{Kind: KindInvalid, Reason: "too many arguments"}
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return Command{Kind: KindInvalid, Reason: fmt.Sprintf("invalid asset number %q", fields[1])}
	}
	cmd.Target = &n
	return cmd
}

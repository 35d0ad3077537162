package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const subcommandsListed = "etenda/subcommands-listed"

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the available subcommands to a group command's
// Long text, so "etenda tender --help" shows what can follow it.
// The root is skipped and each command is enriched at most once.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasParent() || !cmd.HasAvailableSubCommands() {
		return
	}
	if cmd.Annotations[subcommandsListed] != "" {
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(cmd.Long, "\n"))
	if sb.Len() == 0 {
		sb.WriteString(cmd.Short)
	}
	sb.WriteString("\n\nSubcommands:\n")

	var subs []*cobra.Command
	width := 0
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			subs = append(subs, sub)
			width = max(width, len(sub.Name()))
		}
	}
	for _, sub := range subs {
		fmt.Fprintf(&sb, "  %-*s  %s\n", width, sub.Name(), sub.Short)
	}
	cmd.Long = sb.String()

	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[subcommandsListed] = "true"
}

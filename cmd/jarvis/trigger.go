package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/jarvis/internal/ipc"
)

var (
	triggerPing        bool
	triggerCancelPower bool
)

func getTriggerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger [utterance...]",
		Short: "Ask a running daemon to listen, or hand it a typed utterance",
		RunE:  runTrigger,
	}

	cmd.Flags().BoolVar(&triggerPing, "ping", false, "Check that the daemon is running")
	cmd.Flags().BoolVar(&triggerCancelPower, "cancel-power", false, "Cancel a pending shutdown or restart")

	return cmd
}

func runTrigger(cmd *cobra.Command, args []string) error {
	msg := triggerMessage(args)

	resp, err := ipc.Send(appConfig.Voice.SocketPath, msg)
	if err != nil {
		return fmt.Errorf("jarvis daemon: %w", err)
	}

	if resp.Reply != "" {
		fmt.Fprintln(cmd.OutOrStdout(), resp.Reply)
	}
	return nil
}

func triggerMessage(args []string) ipc.ControlMessage {
	switch {
	case triggerPing:
		return ipc.ControlMessage{Cmd: ipc.CmdPing}
	case triggerCancelPower:
		return ipc.ControlMessage{Cmd: ipc.CmdCancelPower}
	case len(args) > 0:
		return ipc.ControlMessage{Cmd: ipc.CmdSay, Text: strings.Join(args, " ")}
	default:
		return ipc.ControlMessage{Cmd: ipc.CmdListen}
	}
}

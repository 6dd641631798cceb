package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"smartc/api"
	"smartc/client"
	"smartc/ui"
)

func newChatCommand(o *options) *cobra.Command {
	var register bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Log in and chat in a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(cmd.Context(), o.conf, register)
		},
	}
	cmd.Flags().BoolVar(&register, "register", false, "create the account before logging in")
	return cmd
}

func newQuickstartCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "Walk through login, call sessions and ICE servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(o.conf)
			return quickstart(cmd.Context(), c, cmd.OutOrStdout(), o.username, o.password)
		},
	}
}

func newSessionsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions [id]",
		Short: "List call sessions, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := client.New(o.conf)
			if _, err := c.Login(ctx, o.username, o.password); err != nil {
				return err
			}
			defer c.Logout(ctx)

			if len(args) == 1 {
				var id int
				if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
					return errors.Errorf("session id \"%s\" is not a number", args[0])
				}
				s, err := c.CallDetails(ctx, id)
				if err != nil {
					return err
				}
				printSessions(cmd.OutOrStdout(), []api.Session{*s})
				return nil
			}
			sessions, err := c.AvailableCalls(ctx)
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func newIceCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ice",
		Short: "Show the ICE servers a call would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(o.conf)
			printIce(cmd.OutOrStdout(), c.IceServers(cmd.Context()))
			return nil
		},
	}
}

func newHealthCommand(o *options) *cobra.Command {
	var probe string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the service health endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProbe(probe)
			if err != nil {
				return err
			}
			c := client.New(o.conf)
			h, err := c.Health(cmd.Context(), p)
			if h != nil {
				printHealth(cmd.OutOrStdout(), h)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&probe, "probe", "", "overall (default), live or ready")
	return cmd
}

func parseProbe(s string) (api.Probe, error) {
	switch strings.ToLower(s) {
	case "", "overall":
		return api.ProbeOverall, nil
	case "live":
		return api.ProbeLive, nil
	case "ready":
		return api.ProbeReady, nil
	}
	return "", errors.Errorf("unknown probe \"%s\"", s)
}

// quickstart runs the getting-started walk: log in, start a call, find it
// in the list, fetch ICE servers, then end the call and log out.
func quickstart(ctx context.Context, c *client.Client, w io.Writer, username, password string) error {
	u, err := c.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	fmt.Fprintf(w, "logged in as %s (id %d)\n", u.Username, u.Id)

	call, err := c.StartCall(ctx, "Standup", "quickstart call")
	if err != nil {
		return errors.Wrap(err, "start call")
	}
	fmt.Fprintf(w, "call started: %s (id %d)\n", call.Name, call.Id)

	sessions, err := c.AvailableCalls(ctx)
	if err != nil {
		return errors.Wrap(err, "list calls")
	}
	printSessions(w, sessions)

	// not in a room, nothing to leave
	if err := c.LeaveRoom(ctx); err != nil {
		return err
	}

	conf := c.IceConfiguration(ctx)
	fmt.Fprintf(w, "ice configuration: %d server(s)\n", len(conf.ICEServers))

	c.EndCall(ctx)
	fmt.Fprintln(w, "call ended")
	if err := c.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "logged out")
	return nil
}

func printSessions(w io.Writer, sessions []api.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATOR\tCREATED\tDESCRIPTION")
	for _, s := range sessions {
		created := s.CreatedAt
		if t, ok := s.Created(); ok {
			created = t.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", s.Id, s.Name, s.CreatorId, created, s.Description)
	}
	tw.Flush()
}

func printIce(w io.Writer, servers []api.IceServer) {
	for _, s := range servers {
		line := strings.Join(s.URLs, ", ")
		if s.Username != "" {
			line += " (user " + s.Username + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printHealth(w io.Writer, h *api.Health) {
	fmt.Fprintf(w, "status: %s\n", h.Status)
	if h.Message != "" {
		fmt.Fprintf(w, "message: %s\n", h.Message)
	}
	if h.Uptime != "" {
		fmt.Fprintf(w, "uptime: %s\n", h.Uptime)
	}
	names := make([]string, 0, len(h.Components))
	for name := range h.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		comp := h.Components[name]
		line := fmt.Sprintf("  %s: %s", name, comp.Status)
		if comp.ResponseTimeMs != nil {
			line += fmt.Sprintf(" (%dms)", *comp.ResponseTimeMs)
		}
		if comp.Details != "" {
			line += " " + comp.Details
		}
		fmt.Fprintln(w, line)
	}
}

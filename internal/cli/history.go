package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/whsock/internal/history"
	"github.com/lu-zhengda/whsock/internal/report"
	"github.com/lu-zhengda/whsock/internal/socket"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show socket open/close event history",
		Long: `Display a timeline of socket open and close events.

Events are recorded each time "whsock history record" is run.
The history log is stored at ~/.config/whsock/history.json unless
history_path is set in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runHistoryShow(cmd, limit)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "last", "n", 0, "Show only the last N events")

	var tcp, udp bool
	recordCmd := &cobra.Command{
		Use:   "record (-t | -u)",
		Short: "Snapshot current sockets and record changes",
		Long: `Take a snapshot of the current TCP or UDP sockets, diff against the
previous snapshot of the same protocol, and record any open/close events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proto, err := selectProtocol(tcp, udp, args)
			if err != nil {
				return usageError(cmd, err)
			}
			return opts.runHistoryRecord(cmd, proto)
		},
	}
	recordCmd.Flags().BoolVarP(&tcp, "tcp", "t", false, "Record TCP sockets")
	recordCmd.Flags().BoolVarP(&udp, "udp", "u", false, "Record UDP sockets")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all history data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runHistoryClear(cmd)
		},
	}

	historyCmd.AddCommand(recordCmd, clearCmd)
	return historyCmd
}

func (o *options) historyStore() (*history.Store, error) {
	var store *history.Store
	if o.cfg.HistoryPath != "" {
		store = history.NewStoreWithPath(o.cfg.HistoryPath)
	} else {
		var err error
		store, err = history.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
	}
	o.log.WithField("path", store.Path()).Debug("using history store")
	return store, nil
}

func (o *options) runHistoryShow(cmd *cobra.Command, limit int) error {
	store, err := o.historyStore()
	if err != nil {
		return err
	}

	data, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	events := data.Events
	if len(events) == 0 {
		if o.jsonOutput {
			return printHistoryJSON(out, events)
		}
		fmt.Fprintln(out, "No history events recorded.")
		fmt.Fprintln(out, "Run 'whsock history record -t' to start tracking socket changes.")
		return nil
	}

	// Most recent first.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}

	if o.jsonOutput {
		return printHistoryJSON(out, events)
	}
	return printHistoryHuman(out, events, time.Now())
}

func (o *options) runHistoryRecord(cmd *cobra.Command, proto socket.Protocol) error {
	res, err := o.reporter().Run(cmd.Context(), proto)
	if err != nil {
		return err
	}

	store, err := o.historyStore()
	if err != nil {
		return err
	}

	now := time.Now()
	events, err := store.Record(proto, res.Rows, now)
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	o.log.WithField("proto", proto).WithField("events", len(events)).Debug("recorded snapshot")

	out := cmd.OutOrStdout()
	if o.jsonOutput {
		return printHistoryJSON(out, events)
	}

	if len(events) == 0 {
		fmt.Fprintf(out, "Snapshot recorded at %s. No changes detected.\n", now.Format("15:04:05"))
		return nil
	}

	fmt.Fprintf(out, "Snapshot recorded at %s. %d change(s):\n\n", now.Format("15:04:05"), len(events))
	return printHistoryHuman(out, events, now)
}

func (o *options) runHistoryClear(cmd *cobra.Command) error {
	store, err := o.historyStore()
	if err != nil {
		return err
	}

	if err := store.Save(&history.Data{}); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}

func printHistoryHuman(w io.Writer, events []history.Event, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tWHEN\tEVENT\tPROTO\tLOCAL\tREMOTE\tPID\tCOMMAND\tUSER")
	for _, e := range events {
		eventStr := "OPEN"
		if e.Type == history.EventClose {
			eventStr = "CLOSE"
		}
		pid := ""
		if e.PID > 0 {
			pid = fmt.Sprint(e.PID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			eventStr,
			e.Protocol,
			e.Local,
			e.Remote,
			pid,
			report.CleanField(e.Command),
			report.CleanField(e.User),
		)
	}
	return tw.Flush()
}

func printHistoryJSON(w io.Writer, events []history.Event) error {
	if events == nil {
		events = []history.Event{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

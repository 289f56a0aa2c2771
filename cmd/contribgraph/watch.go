package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/contribgraph/pkg/client"
	"github.com/charlie0129/contribgraph/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Follow the events of a running server",
		GroupID: gAdvanced,
		Long: `Follow the events of a running server until interrupted.

Events: ` + strings.Join(events.Names, ", ") + `. Needs --server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if serverAddr == "" {
				return fmt.Errorf("watch needs --server")
			}
			for _, name := range only {
				if !slices.Contains(events.Names, name) {
					return fmt.Errorf("unknown event %q, must be one of %s", name, strings.Join(events.Names, ", "))
				}
			}

			ch, err := client.NewClient(serverAddr).SubscribeEvents(cmd.Context())
			if err != nil {
				return err
			}

			for ev := range ch {
				logrus.WithFields(logrus.Fields{
					"event": ev.Name,
					"data":  string(ev.Data),
				}).Debug("new event")

				if len(only) > 0 && !slices.Contains(only, ev.Name) {
					continue
				}
				line, err := describeEvent(ev)
				if err != nil {
					logrus.WithError(err).Errorf("failed to decode %s event", ev.Name)
					continue
				}
				cmd.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "only print these events")

	return cmd
}

func describeEvent(ev events.Event) (string, error) {
	stamp := func(ts int64) string {
		return time.Unix(ts, 0).Format(time.Kitchen)
	}

	switch ev.Name {
	case events.Subscribed:
		return bold("watching %s", serverAddr), nil
	case events.GraphBuilt:
		p, err := events.DecodeAs[events.GraphBuiltEvent](ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s fetched @%s (%s, %s): %d contributions", stamp(p.Ts), p.Username, p.Theme, p.Source, p.Total), nil
	case events.CacheFlushed:
		p, err := events.DecodeAs[events.CacheFlushedEvent](ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s cache flushed (%s): %d graphs dropped", stamp(p.Ts), p.Reason, p.Dropped), nil
	case events.ConfigReloaded:
		p, err := events.DecodeAs[events.ConfigReloadedEvent](ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s config reloaded: source %s, default theme %s", stamp(p.Ts), p.Source, p.DefaultTheme), nil
	default:
		return fmt.Sprintf("%s %s", ev.Name, string(ev.Data)), nil
	}
}

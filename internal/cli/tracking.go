package cli

import (
	"fmt"
	"io"

	"doc-tracker/internal/document"
	"doc-tracker/internal/thread"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func TrackingCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "tracking",
		Short: "Show outgoing documents still waiting for a reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(env, func(conn *gorm.DB) error {
				docs, err := document.NewRepository(conn).ListActive(cmd.Context())
				if err != nil {
					return err
				}
				report := thread.NewGraph(docs).Track(env.Now())
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
}

func printReport(w io.Writer, report thread.Report) {
	red := color.New(color.FgRed, color.Bold)
	green := color.New(color.FgGreen)

	fmt.Fprintf(w, "%s (%d, waiting more than %d days)\n",
		red.Sprint("URGENT"), len(report.Urgent), thread.TrackingThreshold)
	printEntries(w, report.Urgent)

	fmt.Fprintf(w, "\n%s (%d)\n", green.Sprint("NORMAL"), len(report.Normal))
	printEntries(w, report.Normal)
}

func printEntries(w io.Writer, entries []thread.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  %s  %3dd  %-8s  %s | %s\n",
			e.Document.ID, e.DaysWaited, e.Document.Type, e.Document.Agency, e.Document.Subject)
		if e.ReplyCount > 0 {
			fmt.Fprintf(w, "      %d repl(ies), latest %s\n", e.ReplyCount, e.LatestReplyDate)
		}
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "List lessons and what you have completed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Lessons(cmd.Context())
		if err != nil {
			return err
		}
		ascii := a.Config().UI.ASCIIOnly
		out := cmd.OutOrStdout()
		region := ""
		for _, l := range list {
			if l.Region != region {
				if region != "" {
					fmt.Fprintln(out)
				}
				region = l.Region
				fmt.Fprintln(out, region)
			}
			fmt.Fprintf(out, "  %s %-7s %s (%d XP)\n", mark(l.Completed, ascii), l.LessonID, l.Title, l.XP)
		}
		return nil
	},
}

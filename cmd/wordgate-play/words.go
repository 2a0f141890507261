package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wordgate/pkg/client"
)

func newWordsCmd() *cobra.Command {
	var showAnswers bool
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Print the server's vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			v, err := c.Load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, w := range v.Words {
				if showAnswers {
					fmt.Fprintf(out, "%2d. %s = %s\n", i+1, w, v.Answers[w])
					continue
				}
				fmt.Fprintf(out, "%2d. %s\n", i+1, w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showAnswers, "answers", false, "also print the expected answers")
	return cmd
}

func newChecksCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "Print the server's most recent answer checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(serverURL)
			if err != nil {
				return err
			}
			checks, err := c.Checks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSTATUS\tPROVIDER\tTRANSCRIPT\tLATENCY")
			for _, ch := range checks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%q\t%s\n",
					ch.At.Local().Format(time.TimeOnly), ch.Status, ch.Provider, ch.Transcript, ch.Latency.Round(time.Millisecond))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of checks to fetch")
	return cmd
}

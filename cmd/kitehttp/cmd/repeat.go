package cmd

import (
	"os"

	"github.com/assetnote/kitehttp/internal/fetch"
	"github.com/assetnote/kitehttp/pkg/context"
	errors2 "github.com/assetnote/kitehttp/pkg/errors"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/spf13/cobra"
)

var (
	count        = 100
	concurrency  = 4
	expectStatus = []string{}
	progressBar  = true
)

// repeatCmd represents the repeat command
var repeatCmd = &cobra.Command{
	Use:   "repeat URL [ -n count ] [ -c concurrency ]",
	Short: "send the same request many times over pooled connections",
	Long: `this sends count requests to the URL from concurrency workers sharing
one connection pool, then prints a summary of statuses, bytes received and
how often a pooled connection was reused.

The URL may contain {i}, which is replaced with the index of the request.

usage:
kitehttp repeat "http://localhost:14000/fixed/{i}" -n 1000 -c 8
kitehttp repeat http://localhost:14000/ -n 500 --expect-status 200-299 --deadline 10s
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := requestOptions(cmd)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		opts = append(opts,
			fetch.Count(count),
			fetch.Concurrency(concurrency),
			fetch.ExpectStatus(expectStatus),
			fetch.ProgressBar(progressBar),
		)

		st, err := fetch.Repeat(context.Context(), os.Stdout, args[0], opts...)
		if err != nil {
			errors2.PrintError(err, 0)
			log.Fatal().Err(err).Str("url", args[0]).Msg("repeat failed")
		}
		if st.Failures > 0 || st.Unexpected > 0 {
			log.Error().Int("failures", st.Failures).Int("unexpected", st.Unexpected).Str("last_error", st.LastError).Msg("some requests did not succeed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(repeatCmd)
	addRequestFlags(repeatCmd)

	repeatCmd.Flags().IntVarP(&count, "count", "n", count, "number of requests to send")
	repeatCmd.Flags().IntVarP(&concurrency, "concurrency", "c", concurrency, "number of concurrent workers sharing the pool")
	repeatCmd.Flags().StringSliceVar(&expectStatus, "expect-status", expectStatus, "status codes counted as success. e.g. 200 or 200-299. all codes succeed when empty")
	repeatCmd.Flags().BoolVar(&progressBar, "progress", progressBar, "a progress bar on Stderr while repeating")
}

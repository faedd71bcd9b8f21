package cmd

import (
	"os"

	"github.com/assetnote/kitehttp/internal/fetch"
	"github.com/assetnote/kitehttp/pkg/context"
	errors2 "github.com/assetnote/kitehttp/pkg/errors"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/spf13/cobra"
)

// reqCmd represents the req command
var reqCmd = &cobra.Command{
	Use:   "req URL [ -X method ] [ -H header ]",
	Short: "send a single request and print the response",
	Long: `this sends one request to the URL and prints the status, headers and
optionally the body of the response.

usage:
kitehttp req http://localhost:14000/
kitehttp req http://localhost:14000/echo -X POST -d @body.json --content-type application/json --show-body
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := requestOptions(cmd)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}

		if _, err := fetch.Fetch(context.Context(), os.Stdout, args[0], opts...); err != nil {
			errors2.PrintError(err, 0)
			log.Fatal().Err(err).Str("url", args[0]).Msg("request failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(reqCmd)
	addRequestFlags(reqCmd)
}

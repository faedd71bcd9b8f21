/*
Package context wraps the native go/context package with a process wide context that is cancelled
on the first interrupt. A second interrupt exits the process.

	import "github.com/assetnote/kitehttp/pkg/context"

	...

	if _, err := fetch.Repeat(context.Context(), os.Stdout, url, opts...); err != nil {
		log.Fatal().Err(err).Msg("repeat failed")
	}
*/
package context

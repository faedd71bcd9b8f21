package fetch

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/assetnote/kitehttp/pkg/http"
	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/dustin/go-humanize"
	"github.com/francoispqt/gojay"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	return table
}

// WriteResult renders res. Pretty output tabulates the header, text output mirrors the wire format
// and json writes a single object per result
func WriteResult(w io.Writer, format log.LogFormat, res *Result, showBody bool) error {
	switch format {
	case log.JSON:
		return writeJSON(w, resultJSON{res: res, showBody: showBody})
	case log.Pretty:
		fmt.Fprintf(w, "%s %s -> %s (%s, %s)\n", res.Method, res.URL, res.Status,
			humanize.Bytes(uint64(len(res.Body))), res.Duration.Round(time.Microsecond))
		table := newTable(w, "header", "value")
		for _, k := range res.Header.Keys() {
			for _, v := range res.Header.Values(k) {
				table.Append([]string{k, v})
			}
		}
		table.Render()
	default:
		fmt.Fprintf(w, "%s\r\n", res.Status)
		for _, k := range res.Header.Keys() {
			for _, v := range res.Header.Values(k) {
				fmt.Fprintf(w, "%s: %s\r\n", k, v)
			}
		}
		fmt.Fprint(w, "\r\n")
	}

	if showBody && len(res.Body) > 0 {
		if _, err := w.Write(res.Body); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStats renders the summary of a repeat run
func WriteStats(w io.Writer, format log.LogFormat, st *Stats) error {
	if format == log.JSON {
		return writeJSON(w, st)
	}

	table := newTable(w, "stat", "value")
	table.Append([]string{"requests", strconv.Itoa(st.Requests)})
	table.Append([]string{"failures", strconv.Itoa(st.Failures)})
	table.Append([]string{"unexpected", strconv.Itoa(st.Unexpected)})
	table.Append([]string{"received", humanize.Bytes(st.Bytes)})
	table.Append([]string{"duration", st.Duration.String()})
	table.Append([]string{"requests/s", humanize.FormatFloat("#,###.##", st.Rate())})
	table.Append([]string{"pool hits", strconv.FormatUint(st.Pool.Hits, 10)})
	table.Append([]string{"pool misses", strconv.FormatUint(st.Pool.Misses, 10)})
	table.Append([]string{"pool expired", strconv.FormatUint(st.Pool.Expired, 10)})
	for _, code := range st.Codes() {
		table.Append([]string{"status " + strconv.Itoa(code), strconv.Itoa(st.Statuses[code])})
	}
	table.Render()
	return nil
}

func writeJSON(w io.Writer, v gojay.MarshalerJSONObject) error {
	enc := gojay.BorrowEncoder(w)
	defer enc.Release()
	if err := enc.EncodeObject(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

type resultJSON struct {
	res      *Result
	showBody bool
}

func (r resultJSON) MarshalJSONObject(enc *gojay.Encoder) {
	enc.AddStringKey("method", r.res.Method.String())
	enc.AddStringKey("url", r.res.URL)
	enc.AddStringKeyOmitEmpty("request_id", r.res.RequestID)
	enc.AddIntKey("status", r.res.Status.Code)
	enc.AddStringKey("reason", r.res.Status.Message)
	enc.AddObjectKey("header", headerJSON{r.res.Header})
	enc.AddIntKey("body_size", len(r.res.Body))
	enc.AddInt64Key("duration_ms", r.res.Duration.Milliseconds())
	if r.showBody {
		enc.AddStringKey("body", string(r.res.Body))
	}
}

func (r resultJSON) IsNil() bool {
	return r.res == nil
}

// headerJSON encodes each field as a key holding the array of its values
type headerJSON struct {
	h *http.Header
}

func (h headerJSON) MarshalJSONObject(enc *gojay.Encoder) {
	for _, k := range h.h.Keys() {
		enc.AddArrayKey(k, stringsJSON(h.h.Values(k)))
	}
}

func (h headerJSON) IsNil() bool {
	return h.h == nil
}

type stringsJSON []string

func (s stringsJSON) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range s {
		enc.AddString(v)
	}
}

func (s stringsJSON) IsNil() bool {
	return len(s) == 0
}

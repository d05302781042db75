package run

import (
	"fmt"
	"io"
	"strings"

	"github.com/Mmx233/PatchSync/client"
	"github.com/Mmx233/PatchSync/state"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func printSyncResult(w io.Writer, res client.SyncResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "session %s: %d local archive(s), %d deleted, %d updated, %d rejected\n",
		res.Session, len(res.Inventory), len(res.Deleted), len(res.Updated), len(res.Rejected))
	for _, name := range res.Deleted {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	for _, name := range res.Updated {
		fmt.Fprintf(&b, "  + %s\n", name)
	}
	for _, name := range res.Rejected {
		fmt.Fprintf(&b, "  ! %s\n", name)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", res.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func printProfile(w io.Writer, p state.ServerProfile) error {
	if jsonOutput {
		return printJSON(w, p)
	}
	_, err := fmt.Fprintf(w, "name:    %s\naddress: %s:%s\n\n%s\n", p.Name, p.IP, p.Port, p.Notice)
	return err
}

func printNotice(w io.Writer, notice string) error {
	if jsonOutput {
		return printJSON(w, map[string]string{"notice": notice})
	}
	_, err := fmt.Fprintln(w, notice)
	return err
}

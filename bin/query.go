package main

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var (
	query_command = app.Command(
		"query", "Show the state of the change journal.")

	query_command_volume = query_command.Arg(
		"volume", "Drive letter of the volume (e.g. C)").
		Default("C").String()

	query_command_json = query_command.Flag(
		"json", "Print the state as JSON").Bool()
)

func doQuery() {
	journal, err := getJournal(*query_command_volume)
	kingpin.FatalIfError(err, "Can not open volume")
	defer journal.Close()

	state, err := journal.Query()
	kingpin.FatalIfError(err, "Can not query journal")

	if *query_command_json {
		printJSON(state)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Volume", journal.VolumeName()})
	table.Append([]string{"Serial Number",
		fmt.Sprintf("%#08x", journal.SerialNumber())})
	table.Append([]string{"Journal ID", fmt.Sprintf("%#016x", state.JournalID)})
	table.Append([]string{"First USN", humanize.Comma(state.FirstUsn)})
	table.Append([]string{"Next USN", humanize.Comma(state.NextUsn)})
	table.Append([]string{"Lowest Valid USN",
		humanize.Comma(state.LowestValidUsn)})
	table.Append([]string{"Max USN", humanize.Comma(state.MaxUsn)})
	table.Append([]string{"Max Size", humanize.IBytes(state.MaxSize)})
	table.Append([]string{"Allocation Delta",
		humanize.IBytes(state.AllocationDelta)})
	table.Append([]string{"Used", humanize.IBytes(state.UsedBytes())})
	table.Render()
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case query_command.FullCommand():
			doQuery()
		default:
			return false
		}
		return true
	})
}

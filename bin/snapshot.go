package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var (
	snapshot_command = app.Command(
		"snapshot", "Index the whole volume and save the state for later "+
			"incremental reads.")

	snapshot_command_volume = snapshot_command.Arg(
		"volume", "Drive letter of the volume (e.g. C)").
		Required().String()

	snapshot_command_output = snapshot_command.Arg(
		"output", "Where to write the state").
		Required().String()
)

func doSnapshot() {
	journal, err := getJournal(*snapshot_command_volume)
	kingpin.FatalIfError(err, "Can not open volume")
	defer journal.Close()

	state, err := journal.Snapshot(nil)
	kingpin.FatalIfError(err, "Snapshot")

	err = saveState(*snapshot_command_output, state)
	kingpin.FatalIfError(err, "Writing %v", *snapshot_command_output)

	fmt.Printf("Saved %s entries of %s at USN %s\n",
		humanize.Comma(int64(len(state.Entries))), state.VolumeName,
		humanize.Comma(state.Journal.NextUsn))
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case snapshot_command.FullCommand():
			doSnapshot()
		default:
			return false
		}
		return true
	})
}

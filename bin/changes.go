package main

import (
	"fmt"

	"github.com/pkg/errors"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-usn/parser"
)

var (
	changes_command = app.Command(
		"changes", "Show what changed since a saved snapshot.")

	changes_command_volume = changes_command.Arg(
		"volume", "Drive letter of the volume (e.g. C)").
		Required().String()

	changes_command_state = changes_command.Arg(
		"state", "State file written by the snapshot command").
		Required().String()

	changes_command_reasons = changes_command.Flag(
		"reason", "Only report these reasons (e.g. FILE_CREATE)").Strings()

	changes_command_update = changes_command.Flag(
		"update", "Write the updated state back").Bool()

	changes_command_full_path = changes_command.Flag(
		"full_path", "Resolve the full path of every record").Bool()
)

func doChanges() {
	journal, err := getJournal(*changes_command_volume)
	kingpin.FatalIfError(err, "Can not open volume")
	defer journal.Close()

	state, err := loadState(*changes_command_state)
	kingpin.FatalIfError(err, "Loading %v", *changes_command_state)

	if !state.Compatible(journal) {
		kingpin.Fatalf("State was taken from a different volume " +
			"(serial number mismatch). Take a new snapshot.")
	}

	records, new_state, err := journal.ReadChanges(
		state.Journal, parseReasons(*changes_command_reasons))
	if errors.Is(err, parser.ErrJournalInvalid) {
		kingpin.Fatalf("The journal no longer covers the snapshot: %v. "+
			"Take a new snapshot.", err)
	}
	kingpin.FatalIfError(err, "Reading changes")

	tracker := parser.NewRenameTracker()
	for _, record := range records {
		printJSON(parser.ModelChangeRecord(
			journal, record, *changes_command_full_path))

		event, ok := tracker.Observe(record)
		if ok {
			parser.DebugPrint("%v\n", parser.DebugString(event, "  "))
		}
	}

	if *changes_command_update {
		state.Apply(records, new_state)
		err = saveState(*changes_command_state, state)
		kingpin.FatalIfError(err, "Writing %v", *changes_command_state)
		fmt.Printf("Updated %v to USN %d\n",
			*changes_command_state, new_state.NextUsn)
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case changes_command.FullCommand():
			doChanges()
		default:
			return false
		}
		return true
	})
}

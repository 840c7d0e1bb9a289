package main

import (
	"fmt"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-usn/parser"
)

var (
	resolve_command = app.Command(
		"resolve", "Resolve a file reference number to its path.")

	resolve_command_volume = resolve_command.Arg(
		"volume", "Drive letter of the volume (e.g. C)").
		Required().String()

	resolve_command_frn = resolve_command.Arg(
		"reference", "File reference (e.g. 0x0005000000000005 or 5-5)").
		Required().Strings()
)

func doResolve() {
	journal, err := getJournal(*resolve_command_volume)
	kingpin.FatalIfError(err, "Can not open volume")
	defer journal.Close()

	for _, reference := range *resolve_command_frn {
		frn, err := parser.ParseFileReference(reference)
		kingpin.FatalIfError(err, "Invalid reference")

		path, err := journal.ResolvePath(frn)
		if err != nil {
			fmt.Printf("%v: %v\n", parser.FileReferenceString(frn), err)
			continue
		}
		fmt.Printf("%v: %v%v\n", parser.FileReferenceString(frn),
			journal.VolumeName(), path)
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case resolve_command.FullCommand():
			doResolve()
		default:
			return false
		}
		return true
	})
}

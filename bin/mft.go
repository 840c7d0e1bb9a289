package main

import (
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-usn/parser"
)

var (
	mft_command = app.Command(
		"mft", "Enumerate all entries of the volume.")

	mft_command_volume = mft_command.Arg(
		"volume", "Drive letter of the volume (e.g. C)").
		Default("C").String()

	mft_command_filter = mft_command.Flag(
		"filter", "Only files with these extensions (e.g. \"txt;doc\")").
		String()

	mft_command_folders = mft_command.Flag(
		"folders", "Only list folders").Bool()

	mft_command_limit = mft_command.Flag(
		"limit", "Stop after this many entries").Int()

	mft_command_full_path = mft_command.Flag(
		"full_path", "Resolve the full path of every entry").Bool()

	mft_command_debug = mft_command.Flag(
		"debug", "Dump the decoded records instead").Bool()
)

func doMFT() {
	journal, err := getJournal(*mft_command_volume)
	kingpin.FatalIfError(err, "Can not open volume")
	defer journal.Close()

	var it *parser.MFTEnumerator
	switch {
	case *mft_command_folders:
		it = journal.GetVolumeFolders()
	case *mft_command_filter != "":
		it = journal.GetFilesMatchingFilter(*mft_command_filter)
	default:
		it = journal.EnumerateMFT(nil)
	}

	count := 0
	for it.Next() {
		if *mft_command_limit > 0 && count >= *mft_command_limit {
			break
		}
		count++

		if *mft_command_debug {
			parser.Debug(it.Record())
			continue
		}

		printJSON(parser.ModelChangeRecord(
			journal, it.Record(), *mft_command_full_path))
	}
	kingpin.FatalIfError(it.Err(), "Enumerating MFT")
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case mft_command.FullCommand():
			doMFT()
		default:
			return false
		}
		return true
	})
}

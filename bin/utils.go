package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-usn/parser"
)

// getJournal opens the volume (or a recording of it) honoring the
// global flags.
func getJournal(volume string) (*parser.Journal, error) {
	options, err := parser.LoadOptions(*config_flag)
	if err != nil {
		return nil, err
	}

	if *replay_flag != "" {
		device, err := parser.NewRecorder(afero.NewOsFs(), *replay_flag, nil)
		if err != nil {
			return nil, err
		}
		return parser.NewJournal(device, options)
	}

	device, err := parser.OpenVolume(volume)
	if err != nil {
		return nil, err
	}

	if *record_flag != "" {
		recorder, err := parser.NewRecorder(
			afero.NewOsFs(), *record_flag, device)
		if err != nil {
			device.Close()
			return nil, err
		}
		device = recorder
	}

	return parser.NewJournal(device, options)
}

func parseReasons(names []string) uint32 {
	// No reasons means the configured default.
	if len(names) == 0 {
		return 0
	}

	mask, err := parser.ParseReasonMask(names)
	kingpin.FatalIfError(err, "Invalid reason")
	return mask
}

func printJSON(item interface{}) {
	kingpin.FatalIfError(writeJSON(os.Stdout, item), "Marshal")
}

// writeJSON writes item as a single line of JSON.
func writeJSON(w io.Writer, item interface{}) error {
	serialized, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(serialized))
	return err
}

func loadState(path string) (*parser.VolumeState, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	return parser.LoadVolumeState(fd)
}

func saveState(path string, state *parser.VolumeState) error {
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0660)
	if err != nil {
		return err
	}
	defer fd.Close()

	return state.Save(fd)
}

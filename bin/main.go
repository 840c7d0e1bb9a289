package main

import (
	"os"

	"github.com/sirupsen/logrus"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-usn/parser"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("gousn",
		"A tool for reading the NTFS change journal.")

	config_flag = app.Flag("config", "TOML file with engine options").String()

	record_flag = app.Flag("record",
		"Record all control requests into this directory").String()

	replay_flag = app.Flag("replay",
		"Replay control requests recorded with --record").String()

	verbose_flag = app.Flag("verbose", "Show debug logging").Short('v').Bool()

	command_handlers []CommandHandler
)

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *verbose_flag {
		parser.Logger.SetLevel(logrus.DebugLevel)
	}

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}

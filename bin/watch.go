package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/go-usn/parser"
)

var (
	watch_command = app.Command(
		"watch", "Follow the change journal until interrupted.")

	watch_command_volume = watch_command.Arg(
		"volume", "Drive letter of the volume (e.g. C)").
		Default("C").String()

	watch_command_reasons = watch_command.Flag(
		"reason", "Only report these reasons (e.g. FILE_CREATE)").Strings()

	watch_command_state = watch_command.Flag(
		"state", "Resume from the journal state in this snapshot").String()

	watch_command_full_path = watch_command.Flag(
		"full_path", "Resolve the full path of every record").Bool()

	watch_command_metrics = watch_command.Flag(
		"metrics", "Serve prometheus metrics on this address "+
			"(e.g. 127.0.0.1:9100)").String()
)

func doWatch() {
	journal, err := getJournal(*watch_command_volume)
	kingpin.FatalIfError(err, "Can not open volume")
	defer journal.Close()

	var start *parser.JournalState
	if *watch_command_state != "" {
		state, err := loadState(*watch_command_state)
		kingpin.FatalIfError(err, "Loading %v", *watch_command_state)

		_, err = journal.ValidateState(state.Journal)
		kingpin.FatalIfError(err, "Can not resume")
		start = state.Journal
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	if *watch_command_metrics != "" {
		registry := prometheus.NewRegistry()
		err := parser.RegisterMetrics(registry)
		kingpin.FatalIfError(err, "Registering metrics")

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			registry, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:    *watch_command_metrics,
			Handler: mux,
		}

		group.Go(func() error {
			err := server.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		})

		group.Go(func() error {
			<-ctx.Done()
			shutdown_ctx, shutdown_cancel := context.WithTimeout(
				context.Background(), 5*time.Second)
			defer shutdown_cancel()
			return server.Shutdown(shutdown_ctx)
		})
	}

	group.Go(func() error {
		// Stops the metrics server once the monitor is done.
		defer cancel()

		reasons := parseReasons(*watch_command_reasons)

		var output <-chan *parser.ChangeRecord
		var errc <-chan error
		if start != nil {
			output, errc = journal.WatchJournalFrom(ctx, start, reasons)
		} else {
			output, errc = journal.WatchJournal(ctx, reasons)
		}

		for record := range output {
			printJSON(parser.ModelChangeRecord(
				journal, record, *watch_command_full_path))
		}
		return <-errc
	})

	err = group.Wait()
	parser.Logger.WithFields(logrus.Fields{
		"stats": journal.Stats(),
	}).Debug("watch finished")
	kingpin.FatalIfError(err, "Watching journal")
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case watch_command.FullCommand():
			doWatch()
		default:
			return false
		}
		return true
	})
}

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"duel-arena/server/logging"
	loggingSinks "duel-arena/server/logging/sinks"
)

// eventLog owns the router and whatever files its sinks write to.
type eventLog struct {
	router *logging.Router
	files  []*os.File
}

func newEventLog(cfg logging.Config, stdout io.Writer) (*eventLog, error) {
	el := &eventLog{}
	var sinks []logging.NamedSink
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsole(stdout)})
		case "json":
			if cfg.JSON.FilePath == "" {
				el.closeFiles()
				return nil, fmt.Errorf("json sink requires a file path")
			}
			file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				el.closeFiles()
				return nil, fmt.Errorf("open json log: %w", err)
			}
			el.files = append(el.files, file)
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
		case "memory":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemory()})
		default:
			el.closeFiles()
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}

	router, err := logging.NewRouter(logging.SystemClock{}, cfg, sinks)
	if err != nil {
		el.closeFiles()
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	el.router = router
	return el, nil
}

func (el *eventLog) Close(ctx context.Context) error {
	err := el.router.Close(ctx)
	el.closeFiles()
	return err
}

func (el *eventLog) closeFiles() {
	for _, file := range el.files {
		file.Close()
	}
	el.files = nil
}

// cmd/hybridize/commands/watch.go
package commands

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"hybridize/internal/watch"
)

// WatchCommand polls a source file and serves live diagnostics over
// WebSocket as it changes.
func WatchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	addr := fs.String("addr", ":8787", "listen address")
	interval := fs.Duration("interval", time.Second, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: hybridize watch <file.cpp> [options]")
	}
	file := fs.Arg(0)

	hub := watch.NewHub()
	w := watch.NewWatcher(file, *interval, hub)

	stop := make(chan struct{})
	go func() {
		if err := w.Run(stop); err != nil {
			fmt.Printf("watch: stopped: %v\n", err)
		}
	}()

	http.Handle("/", hub)
	fmt.Printf("watching %s, serving diagnostics at ws://%s/\n", file, *addr)
	return http.ListenAndServe(*addr, nil)
}

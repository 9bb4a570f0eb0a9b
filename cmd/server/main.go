// The server command is the main entrypoint for running the hexfield
// session server. It loads the config, wires up the controller, and runs
// until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hexfield/hexfield/internal"
	"github.com/hexfield/hexfield/internal/core"
)

var configFlag = flag.String("config", "./", "Path to the directory containing the server config file")

func main() {
	flag.Parse()

	config := core.LoadConfig(*configFlag)
	fmt.Println("using configuration file:", *configFlag)

	// Change to the same directory as the config file so that any relative
	// paths in the config file will resolve.
	if err := os.Chdir(filepath.Dir(*configFlag)); err != nil {
		fmt.Println("error changing to config directory:", err)
		os.Exit(1)
	}

	// Bind the Controller to one top-level server context so that we can shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())

	// Register a SIGTERM handler so that Ctrl-C will shut the server down gracefully.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go exitHandler(cancel, c, config)

	controller := &internal.Controller{Config: config}
	if err := controller.Start(ctx); err != nil {
		fmt.Println(err)
	}
	fmt.Println("shut down")
}

// exitHandler cancels the server context on the first signal and waits out
// the grace period, or a second signal, before hard exiting.
func exitHandler(cancelFn func(), c chan os.Signal, config *core.Config) {
	<-c
	fmt.Println("waiting to shut down gracefully...")
	cancelFn()

	grace := time.Duration(config.Shutdown.GracePeriod) * time.Second
	if grace <= 0 {
		grace = 10 * time.Second
	}

	select {
	case <-c:
		fmt.Println("hard exiting (killed)")
	case <-time.After(grace):
		fmt.Println("grace period expired, exiting")
	}
	os.Exit(0)
}

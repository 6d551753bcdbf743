package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/gaze/server"
	"github.com/cyclopcam/gaze/server/config"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("gaze", "Classroom attention monitoring server")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration file", Default: "gaze.json"})
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP port (overrides config)", Default: 0})
	noConfig := parser.Flag("", "noconfig", &argparse.Options{Help: "Run with built-in defaults, without a config file", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	var cfg *config.Config
	if *noConfig {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}

	srv, err := server.NewServer(logger, cfg)
	if err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logger.Infof("Received signal %v", sig)
		srv.Shutdown()
	}()

	if err := srv.ListenHTTP(); err != nil {
		logger.Errorf("HTTP server failed: %v", err)
		os.Exit(1)
	}
	// ListenHTTP returns as soon as the listener closes, while Shutdown is
	// still draining the recorder and finalizing recordings
	<-srv.ShutdownComplete
}

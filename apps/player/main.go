// Command player plays a student's routine of the day in the terminal,
// and lets teachers reorder their cards.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/clock"

	"github.com/rotinas-pei/backend/apps/client"
	"github.com/rotinas-pei/backend/core"
	logsvc "github.com/rotinas-pei/backend/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "PLAYER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := commandLine{
		api:    client.New(conf.Player.APIBaseURL, nil),
		clock:  clock.WallClock,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		stop()
		os.Exit(1)
	}
}

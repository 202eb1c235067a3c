package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/juju/clock"
	"golang.org/x/term"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/activity"
	"github.com/rotinas-pei/backend/core/player"
	"github.com/rotinas-pei/backend/core/routine"
	"github.com/rotinas-pei/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// apiClient is implemented by *client.Client.
type apiClient interface {
	player.Poster
	Login(ctx context.Context, email, pwd string) (user.User, error)
	SetToken(token string)
	Routines(ctx context.Context, studentID string, date core.Date) (routine.Student, []routine.Routine, error)
	Library(ctx context.Context) ([]activity.Activity, error)
	ReorderLibrary(ctx context.Context, ids []string) error
	ReorderRoutine(ctx context.Context, routineID string, ids []string) error
}

type commandLine struct {
	api    apiClient
	clock  clock.Clock
	logger core.Logger
	in     io.Reader
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  play -email EMAIL|-token TOKEN - play today's routine (c: complete, s: skip, q: quit)")
	fmt.Fprintln(cli.out, "  reorder -email EMAIL|-token TOKEN -from INDEX -to INDEX [-routine ID -student ID] - move a card")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	playCmd := flag.NewFlagSet("play", flag.ContinueOnError)
	playCmd.SetOutput(cli.out)
	playEmail := playCmd.String("email", "", "The student's email. The password will be prompted next.")
	playToken := playCmd.String("token", "", "An API token, instead of -email.")

	reorderCmd := flag.NewFlagSet("reorder", flag.ContinueOnError)
	reorderCmd.SetOutput(cli.out)
	reorderEmail := reorderCmd.String("email", "", "The teacher's email. The password will be prompted next.")
	reorderToken := reorderCmd.String("token", "", "An API token, instead of -email.")
	reorderFrom := reorderCmd.Int("from", -1, "Current position of the card (0-based).")
	reorderTo := reorderCmd.Int("to", -1, "New position of the card (0-based).")
	reorderRoutine := reorderCmd.String("routine", "", "Reorder the activities of this routine instead of the library.")
	reorderStudent := reorderCmd.String("student", "", "The student the routine was planned for. Required with -routine.")

	switch args[1] {
	case "play":
		if err := playCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if err := cli.authenticate(ctx, *playEmail, *playToken); err != nil {
			if err == errHelp {
				playCmd.Usage()
			}
			return err
		}
		return cli.play(ctx)

	case "reorder":
		if err := reorderCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *reorderFrom < 0 || *reorderTo < 0 || (*reorderRoutine != "" && *reorderStudent == "") {
			reorderCmd.Usage()
			return errHelp
		}
		if err := cli.authenticate(ctx, *reorderEmail, *reorderToken); err != nil {
			if err == errHelp {
				reorderCmd.Usage()
			}
			return err
		}
		if *reorderRoutine != "" {
			return cli.reorderRoutine(ctx, *reorderStudent, *reorderRoutine, *reorderFrom, *reorderTo)
		}
		return cli.reorderLibrary(ctx, *reorderFrom, *reorderTo)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) authenticate(ctx context.Context, email, token string) error {
	if token != "" {
		cli.api.SetToken(strings.TrimSpace(token))
		return nil
	}
	if email == "" {
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		return errHelp
	}

	usr, err := cli.api.Login(ctx, email, string(pwd))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Hi %s!\n", usr.Name)
	return nil
}

// lines streams the trimmed lines of r until it is exhausted or ctx is done.
func lines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// lockedWriter serializes writes from the session goroutine and the input loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func formatSeconds(secs int) string {
	d := time.Duration(secs) * time.Second
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), secs%60)
}

package main

import (
	"fmt"
	"io"
	"os"

	granular "github.com/cbegin/granular-go"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

const keyHelp = "space gate  [ ] grain  , . start  - = stretch  s S spray  z x pitch  q quit"

// runInteractive puts the terminal in raw mode and maps single keys onto the
// player until q, Esc or Ctrl-C.
func runInteractive(pl *granular.Player, velocity int) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("-interactive needs a terminal on stdin")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, "set raw mode")
	}
	defer term.Restore(fd, oldState)

	done := make(chan struct{})
	defer close(done)
	go reportEvents(pl.Watch(), done, os.Stdout)

	fmt.Print(keyHelp + "\r\n")
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return errors.Wrap(err, "read stdin")
		}
		if n == 0 {
			continue
		}
		switch key := buf[0]; key {
		case 'q', 0x1b, 0x03:
			return nil
		case ' ':
			if pl.Params().Gate() {
				err = pl.NoteOff()
			} else {
				err = pl.NoteOn(velocity)
			}
		default:
			next, ok := applyKey(pl.Params(), key, len(pl.Source().Samples))
			if !ok {
				continue
			}
			err = pl.SetParams(next)
		}
		if err != nil {
			fmt.Printf("rejected: %v\r\n", err)
			continue
		}
		p := pl.Params()
		fmt.Printf("gate=%-5v grain=%5.1fms start=%-8d stretch=%+.2f spray=%.1fms midi=%d\r\n",
			p.Gate(), p.GrainSizeMs, p.StartPos, p.TimeStretch, p.SprayMs, p.MidiPitch)
	}
}

// reportEvents prints faults and rejected updates until done is closed. The
// watch channel is never closed by the player.
func reportEvents(events <-chan granular.Event, done <-chan struct{}, w io.Writer) {
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			if ev.Kind == granular.EventFault || ev.Kind == granular.EventRejected {
				fmt.Fprintf(w, "%s: %v\r\n", ev.Kind, ev.Err)
			}
		}
	}
}

// applyKey nudges one parameter. The player clamps the result.
func applyKey(p granular.Params, key byte, sourceLen int) (granular.Params, bool) {
	step := max(sourceLen/20, 1)
	switch key {
	case '[':
		p.GrainSizeMs -= 5
	case ']':
		p.GrainSizeMs += 5
	case ',':
		p.StartPos -= step
	case '.':
		p.StartPos += step
	case '-':
		p.TimeStretch -= 0.1
	case '=':
		p.TimeStretch += 0.1
	case 's':
		p.SprayMs -= 5
	case 'S':
		p.SprayMs += 5
	case 'z':
		p.MidiPitch--
	case 'x':
		p.MidiPitch++
	default:
		return p, false
	}
	return p, true
}

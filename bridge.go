package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/robertof/go-nordic-uart/uart"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type bridgeOptions struct {
  // Zero disables reading.
  ReadInterval time.Duration
  Hex bool
}

// bridge sends every line read from in to the peripheral and copies whatever the peripheral
// exposes on TX to out, until in is exhausted or ctx is done.
func bridge(ctx context.Context, c *uart.Client, in io.Reader, out io.Writer, opts bridgeOptions) error {
  ctx, cancel := context.WithCancel(ctx)
  defer cancel()

  eg, ctx := errgroup.WithContext(ctx)

  eg.Go(func() error {
    // stop polling once stdin is exhausted.
    defer cancel()

    return forwardLines(ctx, c, in)
  })

  if opts.ReadInterval > 0 {
    eg.Go(func() error {
      return pollReads(ctx, c, out, opts)
    })
  }

  return eg.Wait()
}

type inputLine struct {
  data []byte
  err error
}

// readLines feeds lines from in until it is exhausted or ctx is done. A read blocked on in
// keeps its goroutine alive until in yields, but never the caller.
func readLines(ctx context.Context, in io.Reader) <-chan inputLine {
  ch := make(chan inputLine)

  go func() {
    defer close(ch)

    send := func(l inputLine) bool {
      select {
      case ch <- l:
        return true
      case <-ctx.Done():
        return false
      }
    }

    lines := bufio.NewScanner(in)

    for lines.Scan() {
      if !send(inputLine{data: append(bytes.Clone(lines.Bytes()), '\n')}) {
        return
      }
    }

    if err := lines.Err(); err != nil {
      send(inputLine{err: err})
    }
  }()

  return ch
}

// forwardLines writes lines in order: each write is awaited before the next is scheduled.
func forwardLines(ctx context.Context, c *uart.Client, in io.Reader) error {
  lines := readLines(ctx, in)

  for {
    var line inputLine
    var ok bool

    select {
    case <-ctx.Done():
      return nil
    case line, ok = <-lines:
    }

    if !ok {
      return nil
    }

    if line.err != nil {
      return fmt.Errorf("bridge: reading input: %w", line.err)
    }

    if err := c.ScheduleWrite(line.data).Wait(ctx); err != nil {
      if ctx.Err() != nil {
        return nil
      }

      return fmt.Errorf("bridge: write failed: %w", err)
    }

    log.Trace().Int("Bytes", len(line.data)).Msg("bridge: line sent")
  }
}

func pollReads(ctx context.Context, c *uart.Client, out io.Writer, opts bridgeOptions) error {
  ticker := time.NewTicker(opts.ReadInterval)
  defer ticker.Stop()

  var last []byte

  for {
    select {
    case <-ctx.Done():
      return nil
    case <-ticker.C:
    }

    data, err := c.Read(ctx)

    if err != nil {
      if ctx.Err() != nil {
        return nil
      }

      return fmt.Errorf("bridge: read failed: %w", err)
    }

    // the characteristic keeps its value between reads.
    if len(data) == 0 || string(data) == string(last) {
      continue
    }

    last = data

    if opts.Hex {
      _, err = fmt.Fprintln(out, hex.EncodeToString(data))
    } else {
      _, err = out.Write(data)
    }

    if err != nil {
      return fmt.Errorf("bridge: %w", err)
    }
  }
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const studioHelp = `Type a prompt to generate images, or one of:
  /history [query]   list entries, pinned first
  /select <id>       show an entry and make it current
  /pin <id>          toggle the pin on an entry
  /delete <id>       remove an entry
  /new               clear the current selection
  /show              show the current entry
  /download [n]      save image n of the current entry, or all of them
  /export            save the current entry as a zip
  /whoami            show the signed-in user
  /signout           forget the access token
  /help              this text
  /quit              leave the studio`

func studioCommand(cfg *settings) *cli.Command {
	return &cli.Command{
		Name:  "studio",
		Usage: "Interactive session with prompt history",
		Action: func(ctx context.Context, _ *cli.Command) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "fluxora> ",
				HistoryFile:     cfg.HistoryFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start line editor")
			}
			defer rl.Close()

			cl, err := newClient(cfg, rl.Stdout(), nil)
			if err != nil {
				return err
			}
			stop := followSpinner(cl.orch, rl.Stderr())
			defer stop()

			fmt.Fprintln(cl.out, "Fluxora studio. /help lists commands.")
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}
				if quit := cl.handle(ctx, line); quit {
					return nil
				}
			}
		},
	}
}

// handle runs one studio line and reports whether the session should end.
func (c *client) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		res := c.orch.Generate(ctx, line)
		if res.Succeeded() {
			if e, ok := c.orch.Current(); ok {
				printEntry(c.out, e, c.now())
			}
		}
		return false
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(c.out, studioHelp)
	case "history", "ls":
		cur, _ := c.orch.Current()
		printList(c.out, c.orch.Filter(arg), cur.ID, c.now())
	case "select":
		id, ok := c.entryID(arg)
		if !ok {
			break
		}
		if !c.orch.SelectHistory(id) {
			fmt.Fprintf(c.out, "No history entry %d\n", id)
			break
		}
		e, _ := c.orch.Current()
		printEntry(c.out, e, c.now())
	case "pin":
		id, ok := c.entryID(arg)
		if !ok {
			break
		}
		if _, exists := c.orch.Entry(id); !exists {
			fmt.Fprintf(c.out, "No history entry %d\n", id)
			break
		}
		if c.orch.TogglePin(id) {
			fmt.Fprintf(c.out, "Pinned %d\n", id)
		} else {
			fmt.Fprintf(c.out, "Unpinned %d\n", id)
		}
	case "delete", "rm":
		id, ok := c.entryID(arg)
		if !ok {
			break
		}
		if c.orch.DeleteHistory(id) {
			fmt.Fprintf(c.out, "Deleted %d\n", id)
		} else {
			fmt.Fprintf(c.out, "No history entry %d\n", id)
		}
	case "new":
		c.orch.StartNewChat()
		fmt.Fprintln(c.out, "Started a new chat")
	case "show":
		if e, ok := c.orch.Current(); ok {
			printEntry(c.out, e, c.now())
		} else {
			fmt.Fprintln(c.out, "Nothing selected")
		}
	case "download":
		c.download(ctx, arg)
	case "export":
		e, ok := c.orch.Current()
		if !ok {
			fmt.Fprintln(c.out, "Nothing selected")
			break
		}
		path, err := c.downloader.Export(ctx, e)
		if err != nil {
			fmt.Fprintf(c.out, "✗ export failed: %v\n", err)
			break
		}
		fmt.Fprintf(c.out, "saved %s\n", path)
	case "whoami":
		s, ok := c.sessions.Current()
		switch {
		case !ok:
			fmt.Fprintln(c.out, "Not signed in")
		case s.Email != "":
			fmt.Fprintf(c.out, "Signed in as %s\n", s.Email)
		default:
			fmt.Fprintln(c.out, "Signed in with an access token")
		}
	case "signout":
		if err := c.sessions.SignOut(ctx); err != nil {
			fmt.Fprintf(c.out, "✗ sign out failed: %v\n", err)
			break
		}
		fmt.Fprintln(c.out, "Signed out")
	default:
		fmt.Fprintf(c.out, "Unknown command /%s, try /help\n", name)
	}
	return false
}

func (c *client) entryID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil {
		fmt.Fprintln(c.out, "Expected an entry id, see /history")
		return 0, false
	}
	return id, true
}

func (c *client) download(ctx context.Context, arg string) {
	e, ok := c.orch.Current()
	if !ok {
		fmt.Fprintln(c.out, "Nothing selected")
		return
	}
	indexes := make([]int, 0, len(e.Images))
	if arg == "" {
		for i := range e.Images {
			indexes = append(indexes, i+1)
		}
	} else {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(e.Images) {
			fmt.Fprintf(c.out, "Image number must be between 1 and %d\n", len(e.Images))
			return
		}
		indexes = append(indexes, n)
	}
	for _, n := range indexes {
		path, err := c.downloader.Save(ctx, e.Images[n-1].URL, n)
		if err != nil {
			fmt.Fprintf(c.out, "✗ download failed: %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "saved %s\n", path)
	}
}

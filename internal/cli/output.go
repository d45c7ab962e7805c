package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"github.com/aryanguptajsm/fluxora/internal/orchestrator"
)

func printNotifier(w io.Writer) orchestrator.Notifier {
	return orchestrator.NotifierFunc(func(kind orchestrator.NoticeKind, msg string) {
		mark := "✓"
		if kind == orchestrator.NoticeError {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, msg)
	})
}

// followSpinner keeps a spinner running exactly while a generation is
// pending. The returned function detaches it.
func followSpinner(orch *orchestrator.Orchestrator, w io.Writer) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " generating..."
	unsubscribe := orch.Subscribe(func(st orchestrator.State) {
		if st.Generating {
			s.Start()
		} else {
			s.Stop()
		}
	})
	return func() {
		unsubscribe()
		s.Stop()
	}
}

func printEntry(w io.Writer, e orchestrator.Entry, now time.Time) {
	pin := ""
	if e.Pinned {
		pin = " [pinned]"
	}
	fmt.Fprintf(w, "#%d %s%s (%s)\n", e.ID, e.Title, pin, orchestrator.TimeAgo(e.CreatedAt, now))
	fmt.Fprintf(w, "  prompt: %s\n", e.Prompt)
	for i, img := range e.Images {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, shortURL(img.URL))
	}
}

func printList(w io.Writer, entries []orchestrator.Entry, current int64, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history yet")
		return
	}
	for _, e := range entries {
		marker := " "
		if e.ID == current {
			marker = ">"
		}
		pin := " "
		if e.Pinned {
			pin = "*"
		}
		fmt.Fprintf(w, "%s%s %d  %-33s %s\n", marker, pin, e.ID, e.Title, orchestrator.TimeAgo(e.CreatedAt, now))
	}
}

// shortURL keeps data URLs from flooding the terminal.
func shortURL(u string) string {
	if strings.HasPrefix(u, "data:") {
		header, _, _ := strings.Cut(u, ",")
		return fmt.Sprintf("%s,... (%d bytes)", header, len(u))
	}
	return u
}

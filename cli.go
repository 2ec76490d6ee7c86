package main

import (
	"fmt"
	"io"
	"time"

	"github.com/grtshw/wedding-invitation/guestbook"
	"golang.org/x/text/language"
)

// printThreads writes the organized guestbook as indented plain text.
func printThreads(w io.Writer, feed *guestbook.Feed, now time.Time, tag language.Tag) {
	threads := feed.Threads()
	if len(threads) == 0 {
		fmt.Fprintln(w, "(no messages)")
		return
	}
	for _, th := range threads {
		fmt.Fprintf(w, "%s [%s] %s\n", th.Root.Name, th.Root.Attendance, guestbook.TimeAgo(th.Root.CreatedAt, now, tag))
		fmt.Fprintf(w, "  %s\n", th.Root.Message)
		for _, r := range th.Replies {
			fmt.Fprintf(w, "    > %s (%s): %s\n", r.Name, guestbook.TimeAgo(r.CreatedAt, now, tag), r.Message)
		}
	}
	fmt.Fprintf(w, "%d message(s)\n", feed.Len())
}

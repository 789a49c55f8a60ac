// app.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/campusgig/gigcore/internal/app"
	"github.com/campusgig/gigcore/internal/chat"
	"github.com/campusgig/gigcore/internal/logbuf"
)

// console is the interactive command loop. It is deliberately thin: every
// command maps to one App operation.
type console struct {
	client *app.App
	logs   *logbuf.Buffer

	// current is written by the command loop and read by the inbound
	// message callback on the transport goroutine.
	mu      sync.Mutex
	current *app.Thread
}

func (c *console) thread() *app.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *console) setThread(t *app.Thread) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

func runConsole(ctx context.Context, client *app.App, logs *logbuf.Buffer) error {
	c := &console{client: client, logs: logs}

	// Print inbound messages for the open thread as they arrive.
	cancelMsgs := client.SubscribeMessages(func(m chat.Message) {
		cur := c.thread()
		if cur == nil || m.Key() != cur.Key() {
			return
		}
		if m.SenderID == client.Session().UserID {
			return
		}
		fmt.Printf("\n%s\n> ", formatMessage(client.Session().UserID, m))
	})
	defer cancelMsgs()

	notes, cancelNotes := client.Notifications().Subscribe()
	defer cancelNotes()
	go func() {
		for n := range notes {
			fmt.Printf("\n[%s] %s\n> ", n.Kind, n.Text)
		}
	}()

	client.OnListChanged(func([]chat.Summary) {
		fmt.Printf("\n[chat] conversation list updated\n> ")
	})

	fmt.Printf("Signed in as %s (%s). Type 'help' for commands.\n",
		client.Session().Name, client.Session().UserID)

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return sc.Err()
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		c.dispatch(ctx, cmd, strings.TrimSpace(rest))
	}
}

func (c *console) dispatch(ctx context.Context, cmd, rest string) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cmd {
	case "help":
		c.printHelp()
	case "list":
		c.cmdList(opCtx)
	case "open":
		c.cmdOpen(opCtx, rest)
	case "close":
		c.cmdClose()
	case "send":
		c.cmdSend(rest)
	case "attach":
		c.cmdAttach(opCtx, rest)
	case "call":
		c.cmdCall()
	case "accept":
		c.report(c.client.AcceptCall())
	case "reject":
		c.report(c.client.RejectCall())
	case "hangup":
		c.client.EndCall()
	case "fetch":
		c.cmdFetch(opCtx, rest)
	case "who":
		c.cmdWho(rest)
	case "news":
		c.cmdNews(opCtx)
	case "boards":
		c.cmdBoards(opCtx)
	case "board":
		c.cmdBoard(opCtx, rest)
	case "jobs":
		c.cmdJobs(opCtx, rest)
	case "me":
		c.cmdMe(opCtx)
	case "notes":
		for _, n := range c.client.Notifications().Recent() {
			fmt.Printf("  [%s] %s %s\n", n.Kind, n.TS.Format("15:04:05"), n.Text)
		}
	case "logs":
		for _, e := range c.logs.Snapshot() {
			fmt.Printf("  %s %s\n", e.TS.Format("15:04:05"), e.Msg)
		}
	default:
		fmt.Printf("unknown command %q, try 'help'\n", cmd)
	}
}

func (c *console) printHelp() {
	fmt.Print(`Commands:
  list                          conversation list with unread markers
  open <poster> <accepted> <job>  open a thread (ids of the job conversation)
  send <text>                   send a message in the open thread
  attach <file>                 upload and send a media attachment
  fetch <url>                   download an attachment to the local cache
  close                         close the open thread
  call | accept | reject | hangup   call controls for the open thread
  who <userId>                  presence check
  news | boards | board <id>    campus content
  jobs [search]                 job listings
  me                            verify the session token against the backend
  notes | logs                  recent notifications / log lines
  quit
`)
}

func (c *console) cmdList(ctx context.Context) {
	sums, err := c.client.Resync(ctx)
	if err != nil {
		fmt.Printf("error: %v (showing last known)\n", err)
		sums = c.client.Summaries()
	}
	if len(sums) == 0 {
		fmt.Println("no conversations")
		return
	}
	self := c.client.Session().UserID
	for _, s := range sums {
		marker := " "
		if s.Unread {
			marker = "*"
		}
		last := ""
		if s.LastMessage != nil {
			last = s.LastMessage.Text
			if last == "" {
				last = "[" + string(s.LastMessage.FileType) + "]"
			}
		}
		other := s.Participants[0]
		if other == self {
			other = s.Participants[1]
		}
		online := ""
		if c.client.Online(other) {
			online = " (online)"
		}
		fmt.Printf("%s %s%s: %s\n", marker, s.Key, online, last)
	}
}

func (c *console) cmdOpen(ctx context.Context, rest string) {
	parts := strings.Fields(rest)
	if len(parts) != 3 {
		fmt.Println("usage: open <posterId> <acceptedUserId> <jobId>")
		return
	}
	t := app.Thread{PosterID: parts[0], AcceptedUserID: parts[1], JobID: parts[2]}
	msgs, err := c.client.OpenThread(ctx, t)
	if err != nil {
		fmt.Printf("history unavailable: %v (showing last known)\n", err)
	}
	c.setThread(&t)
	for _, m := range msgs {
		fmt.Println(formatMessage(c.client.Session().UserID, m))
	}
}

func (c *console) cmdClose() {
	cur := c.thread()
	if cur == nil {
		return
	}
	c.client.CloseThread(*cur)
	c.setThread(nil)
}

func (c *console) cmdSend(text string) {
	cur := c.thread()
	if cur == nil {
		fmt.Println("no open thread, use 'open' first")
		return
	}
	c.report(c.client.SendText(*cur, text))
}

func (c *console) cmdAttach(ctx context.Context, path string) {
	cur := c.thread()
	if cur == nil {
		fmt.Println("no open thread, use 'open' first")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer f.Close()
	c.report(c.client.SendAttachment(ctx, *cur, filepath.Base(path), f))
}

func (c *console) cmdCall() {
	cur := c.thread()
	if cur == nil {
		fmt.Println("no open thread, use 'open' first")
		return
	}
	c.report(c.client.StartCall(*cur))
}

func (c *console) cmdFetch(ctx context.Context, rawURL string) {
	if rawURL == "" {
		fmt.Println("usage: fetch <url>")
		return
	}
	path, err := c.client.Attachments().Fetch(ctx, rawURL)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(path)
}

func (c *console) cmdWho(userID string) {
	if userID == "" {
		fmt.Println("usage: who <userId>")
		return
	}
	switch {
	case c.client.PresenceStale():
		fmt.Println("unknown (presence not synced)")
	case c.client.Online(userID):
		fmt.Println("online")
	default:
		fmt.Println("offline")
	}
}

func (c *console) cmdNews(ctx context.Context) {
	items, err := c.client.Feed().News(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, it := range items {
		fmt.Printf("  %s  %s\n", it.ID, it.Title)
	}
}

func (c *console) cmdBoards(ctx context.Context) {
	threads, err := c.client.Feed().Discussions(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, t := range threads {
		fmt.Printf("  %s  %s (%s)\n", t.ID, t.Title, t.Author)
	}
}

func (c *console) cmdBoard(ctx context.Context, id string) {
	if id == "" {
		fmt.Println("usage: board <id>")
		return
	}
	t, err := c.client.Feed().Thread(ctx, id)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s by %s\n%s\n", t.Title, t.Author, t.HTML)
	for _, cm := range t.Comments {
		fmt.Printf("  %s: %s\n", cm.Author, cm.HTML)
	}
}

func (c *console) cmdJobs(ctx context.Context, search string) {
	jobs, err := c.client.API().Jobs(ctx, search, "")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, j := range jobs {
		fmt.Printf("  %s  %s (%s)\n", j.ID, j.Title, j.Status)
	}
}

func (c *console) cmdMe(ctx context.Context) {
	u, err := c.client.API().Me(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s <%s> role=%s id=%s\n", u.Name, u.Email, u.Role, u.ID)
}

func (c *console) report(err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func formatMessage(self string, m chat.Message) string {
	who := m.SenderID
	if who == self {
		who = "me"
	}
	body := m.Text
	if att := m.Attachment(); att != nil {
		body = fmt.Sprintf("[%s] %s", att.Kind, att.URL)
	}
	seen := ""
	if m.SenderID == self && m.Seen {
		seen = " ✓"
	}
	return fmt.Sprintf("%s %s: %s%s", m.CreatedAt.Format("15:04"), who, body, seen)
}

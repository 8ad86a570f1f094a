package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/pkg/chatclient"

	"github.com/google/uuid"
)

const help = `Commands:
  /react <id> <emoji>   toggle a reaction
  /seen <id>            mark a message as seen
  /bg <url>             change the room background
  /avatar <url>         change your avatar
  /quit                 leave
Anything else is sent as a message.`

func main() {
	if err := run(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func run() error {
	url := flag.String("url", chatclient.DefaultConfig().URL, "websocket endpoint")
	room := flag.String("room", "lobby", "room to join")
	name := flag.String("name", "", "display name")
	flag.Parse()

	if *name == "" {
		*name = "guest-" + uuid.NewString()[:4]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := chatclient.DefaultConfig()
	cfg.URL = *url

	fmt.Printf("Connecting to %s...\n", cfg.URL)
	client, err := chatclient.Dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	if err := client.Join(ctx, *room, *name); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	go readEvents(ctx, client, *name, cancel)

	fmt.Println("Connected. Type messages to chat, /help for commands.")

	inputCh := make(chan string)
	go readInput(inputCh)

	var lastID string
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			return nil
		case line, ok := <-inputCh:
			if !ok {
				fmt.Println("\nInput closed.")
				return nil
			}
			msg := strings.TrimSpace(line)
			if msg == "" {
				continue
			}
			if msg == "/quit" {
				fmt.Println("Bye!")
				return nil
			}
			if strings.HasPrefix(msg, "/") {
				if err := command(ctx, client, *room, *name, msg, lastID); err != nil {
					fmt.Printf("error: %v\n", err)
				}
				continue
			}
			lastID = uuid.NewString()
			if err := client.SendText(ctx, *room, lastID, msg); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			_ = client.UpdateLastSeen(ctx, *room, *name, lastID)
		}
	}
}

func command(ctx context.Context, c *chatclient.Client, room, name, line, lastID string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Println(help)
		return nil
	case "/react":
		if len(fields) < 3 {
			return fmt.Errorf("usage: /react <id> <emoji>")
		}
		return c.React(ctx, room, resolve(fields[1]), fields[2])
	case "/seen":
		id := lastID
		if len(fields) > 1 {
			id = resolve(fields[1])
		}
		if id == "" {
			return fmt.Errorf("usage: /seen <id>")
		}
		return c.Seen(ctx, room, id)
	case "/bg":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /bg <url>")
		}
		return c.SetBackground(ctx, room, fields[1])
	case "/avatar":
		if len(fields) < 2 {
			return fmt.Errorf("usage: /avatar <url>")
		}
		return c.SetAvatar(ctx, name, fields[1])
	default:
		return fmt.Errorf("unknown command %s", fields[0])
	}
}

func readEvents(ctx context.Context, c *chatclient.Client, self string, stop context.CancelFunc) {
	defer stop()
	for {
		env, err := c.Next(ctx)
		if err != nil {
			if !chatclient.IsClosed(ctx, err) {
				fmt.Printf("error: %v\n", err)
			}
			return
		}
		printEvent(env, self)
	}
}

func printEvent(env events.Envelope, self string) {
	switch env.Type {
	case events.EventTypeHistory:
		var items []events.MessageOut
		if json.Unmarshal(env.Data, &items) == nil {
			fmt.Printf("--- %d earlier messages ---\n", len(items))
			for _, m := range items {
				printMessage(m)
			}
		}
	case events.EventTypeMessage:
		var m events.MessageOut
		if json.Unmarshal(env.Data, &m) == nil && m.Sender != self {
			printMessage(m)
		}
	case events.EventTypeJoined:
		var p events.JoinedPayload
		if json.Unmarshal(env.Data, &p) == nil {
			fmt.Printf(">>> joined %s as %s\n", p.Room, p.Name)
		}
	case events.EventTypeTyping:
		var p events.TypingOut
		if json.Unmarshal(env.Data, &p) == nil && p.Typing {
			fmt.Printf("... %s is typing\n", p.Name)
		}
	case events.EventTypeSeen:
		var p events.SeenOut
		if json.Unmarshal(env.Data, &p) == nil {
			fmt.Printf("✓✓ %s seen by %s\n", short(p.ID), strings.Join(p.Names, ", "))
		}
	case events.EventTypeReaction:
		var p events.ReactionOut
		if json.Unmarshal(env.Data, &p) == nil {
			fmt.Printf("%s %s x%d\n", short(p.ID), p.Emoji, p.Count)
		}
	case events.EventTypeBackgroundChange:
		var p events.BackgroundOut
		if json.Unmarshal(env.Data, &p) == nil {
			fmt.Printf("*** background: %s\n", p.URL)
		}
	case events.EventTypeAvatarChange:
		var p events.AvatarPayload
		if json.Unmarshal(env.Data, &p) == nil {
			fmt.Printf("*** %s changed avatar\n", p.Name)
		}
	case events.EventTypeError:
		var p events.ErrorPayload
		if json.Unmarshal(env.Data, &p) == nil {
			fmt.Printf("server error on %s: %s (%s)\n", p.Event, p.Message, p.Code)
		}
	}
}

func printMessage(m events.MessageOut) {
	ts := time.UnixMilli(m.TS).Format("15:04")
	body := m.Text
	if m.FileURL != "" {
		body = fmt.Sprintf("[%s] %s", m.FileType, m.FileURL)
	}
	fmt.Printf("%s %s [%s]: %s\n", ts, m.Sender, short(m.ID), body)
}

// seenIDs maps the short ids printed on screen back to full message ids.
var seenIDs sync.Map

func short(id string) string {
	if len(id) > 8 {
		seenIDs.Store(id[:8], id)
		return id[:8]
	}
	return id
}

func resolve(id string) string {
	if full, ok := seenIDs.Load(id); ok {
		return full.(string)
	}
	return id
}

func readInput(dst chan<- string) {
	defer close(dst)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		dst <- scanner.Text()
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"teamboard/client"
	"teamboard/domain"
	"teamboard/internal"
	"teamboard/protocol"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	Token     string `envconfig:"TOKEN" required:"true"`
	Identity  string `envconfig:"IDENTITY" required:"true"`
	Peer      string `envconfig:"PEER" required:"true"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("TEAMBOARD", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		mu     sync.Mutex
		socket *client.Socket
		roster []protocol.PresenceEntry
	)

	emit := func(eventType protocol.EventType, payload any) {
		mu.Lock()
		s := socket
		mu.Unlock()
		if s == nil {
			return
		}
		if err := s.Emit(eventType, payload); err != nil {
			log.Warn("Emit failed", "type", eventType, "error", err)
		}
	}

	conversation := client.NewConversation(config.Identity, config.Peer, func(readerID, authorID string) {
		emit(protocol.EventMarkRead, protocol.MarkRead{ReaderID: readerID, AuthorID: authorID})
	})

	debouncer := client.NewTypingDebouncer(client.DefaultTypingIdle, func(conversationID, recipientID string, isTyping bool) {
		eventType := protocol.EventTypingStart
		if !isTyping {
			eventType = protocol.EventTypingStop
		}
		emit(eventType, protocol.TypingSignal{RecipientID: recipientID, ConversationID: conversationID})
	})
	defer debouncer.Close()

	events := client.Events{
		OnPresence: func(update protocol.PresenceUpdate) {
			mu.Lock()
			roster = update.Roster // full snapshot, replace not merge
			mu.Unlock()
		},
		OnDelivered: func(ack protocol.MessageDelivered) {
			conversation.OnDelivered(ack)
			color.Gray.Printf("✓ delivered (%s)\n", ack.PersistentID)
		},
		OnError: func(failure protocol.MessageError) {
			conversation.OnError(failure)
			color.Red.Printf("✗ failed: %s (retry with /retry %s)\n", failure.Reason, failure.TempID)
		},
		OnInbound: func(msg protocol.MessageReceived) {
			if conversation.OnInbound(msg) {
				color.Green.Printf("[%s] %s\n", msg.SenderID, msg.Content)
			}
		},
		OnTyping: func(update protocol.TypingUpdate) {
			if update.IsTyping {
				color.Yellow.Printf("%s is typing...\n", update.ActorID)
			}
		},
		OnReadAck: func(ack protocol.ReadAck) {
			conversation.OnReadAck(ack)
			color.Gray.Printf("%s read your messages\n", ack.ReaderID)
		},
	}

	onConnect := func(s *client.Socket) error {
		mu.Lock()
		socket = s
		mu.Unlock()

		// Pull-based catch-up: missed live events are recovered from the
		// durable history, never from server-side buffers.
		history, err := s.FetchHistory(ctx, conversation.Key())
		if err != nil {
			log.Warn("History fetch failed", "error", err)
			return nil
		}
		conversation.Replace(history)
		for _, m := range history {
			renderMessage(config.Identity, m)
		}
		return nil
	}

	go readInput(ctx, config, conversation, debouncer, emit, func() []protocol.PresenceEntry {
		mu.Lock()
		defer mu.Unlock()
		return roster
	})

	color.Cyan.Printf(">>> Connected as %s, chatting with %s (Ctrl+C to quit)\n", config.Identity, config.Peer)
	err := client.RunSession(ctx, log, config.ServerURL, config.Token, config.Identity,
		client.DefaultBackoff(), events, onConnect)
	if err != nil && ctx.Err() == nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

// readInput turns stdin lines into protocol actions. Plain text sends a
// message; /who prints the roster, /retry re-issues a failed message,
// /typing simulates a keystroke burst.
func readInput(ctx context.Context, config Config, conversation *client.Conversation,
	debouncer *client.TypingDebouncer, emit func(protocol.EventType, any),
	rosterSnapshot func() []protocol.PresenceEntry) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/who":
			printRoster(rosterSnapshot())
		case line == "/typing":
			debouncer.Keystroke(conversation.Key(), config.Peer)
		case strings.HasPrefix(line, "/retry "):
			tempID := strings.TrimSpace(strings.TrimPrefix(line, "/retry "))
			if cmd, ok := conversation.Retry(tempID); ok {
				emit(protocol.EventSendMessage, cmd)
			} else {
				color.Red.Println("no failed message with that temp id")
			}
		default:
			cmd := conversation.Send(line)
			debouncer.Sent(conversation.Key(), config.Peer)
			emit(protocol.EventSendMessage, cmd)
		}
	}
}

func printRoster(roster []protocol.PresenceEntry) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Identity", "Status"})
	for _, entry := range roster {
		status := "offline"
		if entry.Online {
			status = "online"
		}
		table.Append([]string{entry.Identity, status})
	}
	table.Render()
}

func renderMessage(selfID string, m domain.Message) {
	if m.SenderID == selfID {
		marker := ""
		if m.Read {
			marker = " ✓✓"
		}
		color.Blue.Printf("[you] %s%s\n", m.Content, marker)
		return
	}
	color.Green.Printf("[%s] %s\n", m.SenderID, m.Content)
}

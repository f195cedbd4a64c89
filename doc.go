// Package sechat provides a persistent bot client for a WebSocket-based
// group-chat service.
//
// The library is split into two tightly coupled layers: a protocol/session
// layer that joins rooms, performs the fkey/ws-auth handshake, reconstructs
// chat events from raw socket frames and issues rate-limited HTTP requests,
// and a scheduling engine that serializes every reactive and scheduled piece
// of bot work through one ordered queue.
//
// # Architecture
//
// Socket frames flow from each room session through event reconstruction and
// are enqueued as chores on the scheduler queue. A single consumer goroutine
// drains that queue, invoking registered Listeners, which return Actions; the
// action executor then calls back into the session layer to post, edit,
// delete, join or leave. Timer-driven work (scheduled tasks, inactivity
// checks, delayed posts, condense timers) is injected into the same queue, so
// every bot-originated side effect is totally ordered. Send, edit and delete
// are only safely callable from the scheduler goroutine.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/sechat"
//	    "github.com/luciancaetano/sechat/bot"
//	)
//
//	cfg, err := bot.LoadConfig("sechat.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b, err := bot.New(cfg,
//	    bot.WithListener(sechat.ListenerFunc(func(m *sechat.ChatMessage, b sechat.Bot) []sechat.Action {
//	        if strings.HasPrefix(m.Content.Text, b.Trigger()+" ping") {
//	            return []sechat.Action{sechat.PostMessage{RoomID: m.RoomID, Text: "pong"}}
//	        }
//	        return nil
//	    })),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocks until a Stop or Finish chore is processed.
//	if err := b.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Chore Ordering
//
// The scheduler queue is an unbounded priority queue with three ordering
// classes: Stop sorts first and is dequeued before any already-queued work,
// CondenseMessage chores sort next, and everything else (including
// Finish) is pure FIFO by insertion sequence. Finish therefore drains all
// normally queued work before terminating the loop, while Stop jumps the
// queue.
//
// # Rate Limiting
//
// All outbound HTTP goes through a single retry layer. When the service
// answers with a "too many requests" status whose body embeds a wait time in
// seconds, the layer honors that wait and resends, bounded to 5 attempts
// total. A client-side token bucket additionally throttles request issue.
//
// # Message Lifecycle
//
// Messages sent by the bot are tracked until the service echoes them back
// over the socket. If an echoed message was rendered as a onebox, or the
// originating PostMessage asked for condensed or ephemeral behavior, a
// CondenseMessage chore fires after the configured hide duration and either
// replaces the first wire message with the condensed text or deletes every
// wire part.
//
// # Important
//
//   - Session operations (send/edit/delete) must only be called from the
//     scheduler goroutine; socket callbacks and timers only enqueue.
//   - A room is usable only after its fkey and can-post flag are established.
//   - Per-listener and per-chore failures are logged and never abort the
//     scheduler loop.
package sechat

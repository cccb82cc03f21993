package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/gsole-chat/gsole/internal/chat"
	"github.com/gsole-chat/gsole/internal/identity"
	"github.com/gsole-chat/gsole/internal/session"
	"github.com/gsole-chat/gsole/internal/store"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	qrFlag := flag.Bool("qr", false, "render the identity as a QR code")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	db := openStore(sessionName)
	defer func() { _ = db.Close() }()

	switch args[0] {
	case "id":
		cmdID(db, *jsonFlag, *qrFlag)
	case "friends":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: gsolectl friends <list|add|remove> [identity]")
			os.Exit(1)
		}
		cmdFriends(db, args[1:], *jsonFlag)
	case "queue":
		sub := "pending"
		if len(args) >= 2 {
			sub = args[1]
		}
		cmdQueue(db, sub, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: gsolectl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  id [--qr]             Show this client's identity")
	fmt.Fprintln(os.Stderr, "  friends list          List saved friends")
	fmt.Fprintln(os.Stderr, "  friends add <id>      Add a friend by identity")
	fmt.Fprintln(os.Stderr, "  friends remove <id>   Remove a friend")
	fmt.Fprintln(os.Stderr, "  queue [pending|dead]  Show queued messages")
}

func openStore(sessionName string) *store.DB {
	if err := session.EnsureDir(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	db, err := store.Open(session.DBPath(sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return db
}

func cmdID(db *store.DB, jsonOut, qr bool) {
	id, err := identity.NewProvider(db, zap.NewNop()).GetOrCreate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(map[string]string{"identity": id})
		return
	}
	fmt.Println(id)
	if qr {
		code, err := qrcode.New(id, qrcode.Low)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(code.ToSmallString(false))
	}
}

func cmdFriends(db *store.DB, args []string, jsonOut bool) {
	switch args[0] {
	case "list":
		friends, err := db.ListFriends()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			outputJSON(friends)
			return
		}
		for _, f := range friends {
			fmt.Printf("%-16s %s\n", f.Identity, f.ChannelID)
		}
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: gsolectl friends add <identity>")
			os.Exit(1)
		}
		self, err := identity.NewProvider(db, zap.NewNop()).GetOrCreate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		id := chat.NormalizeIdentity(args[1])
		if err := chat.ValidateIdentity(id); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if id == self {
			fmt.Fprintln(os.Stderr, "error: cannot add yourself")
			os.Exit(1)
		}
		f := &chat.Friend{Identity: id, ChannelID: chat.ChannelID(self, id)}
		if err := db.AddFriend(f); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("added %s (channel %s)\n", f.Identity, f.ChannelID)
	case "remove":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: gsolectl friends remove <identity>")
			os.Exit(1)
		}
		id := chat.NormalizeIdentity(args[1])
		if err := db.RemoveFriend(id); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("removed %s\n", id)
	default:
		fmt.Fprintln(os.Stderr, "usage: gsolectl friends <list|add|remove> [identity]")
		os.Exit(1)
	}
}

func cmdQueue(db *store.DB, sub string, jsonOut bool) {
	var (
		entries []store.OutboxEntry
		err     error
	)
	switch sub {
	case "pending":
		entries, err = db.PendingOutbox()
	case "dead":
		entries, err = db.DeadOutbox()
	default:
		fmt.Fprintln(os.Stderr, "usage: gsolectl queue [pending|dead]")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(entries)
		return
	}
	for _, e := range entries {
		fmt.Printf("%-38s %-28s %-9s attempts=%d %s\n",
			e.ClientMsgID, e.ChannelID, e.Status, e.Attempts, e.ErrorMessage)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

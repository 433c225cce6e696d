package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/stlalpha/tagrelay/internal/client"
	"github.com/stlalpha/tagrelay/internal/frame"
	"github.com/stlalpha/tagrelay/internal/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "Relay address (host:port)")
	name := flag.String("name", "", "Display name to announce on connect")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logging.DebugEnabled = *debug || os.Getenv("DEBUG") == "1"
	log.SetOutput(os.Stderr)

	c, err := client.Dial(*addr, client.Options{Name: *name})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer c.Close()

	fmt.Printf("✅ Connected to %s as %s. Type /name <name> to rename, STOP to leave.\n", *addr, c.Name())

	go printEvents(c)

	input := bufio.NewScanner(os.Stdin)
	for input.Scan() {
		line := input.Text()
		if rest, ok := strings.CutPrefix(line, "/name "); ok {
			if err := c.Rename(rest); err != nil {
				log.Printf("ERROR: %v", err)
				continue
			}
			fmt.Printf("🔄 Name changed to %s\n", c.Name())
			continue
		}
		stop, err := c.Say(line)
		if err != nil {
			log.Printf("ERROR: %v", err)
			return
		}
		if stop {
			return
		}
	}
}

// printEvents renders relay traffic until the connection ends.
func printEvents(c *client.Client) {
	for f := range c.Events() {
		switch f.Kind {
		case frame.KindUsernameChanged:
			fmt.Printf("🗣️ Someone is now known as %s\n", f.Name)
		case frame.KindTypingStarted:
			fmt.Printf("… %s is typing\n", f.Name)
		case frame.KindTypingStopped:
		case frame.KindChatMessage:
			fmt.Println(f.Rendered())
		case frame.KindRelayed:
			fmt.Println(f.Text)
		default:
			if f.Text != "" {
				fmt.Println(f.Text)
			}
		}
	}
	if err := c.Err(); err != nil {
		fmt.Printf("🛑 Connection lost: %v\n", err)
	} else {
		fmt.Println("🛑 The relay closed the connection.")
	}
	os.Exit(0)
}

package main

import (
	"log"
	"net"
	"os"

	"chat-relay/internal/client"
)

func main() {
	host, port := "127.0.0.1", "8080"
	args := os.Args[1:]
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		port = args[1]
	}

	c, err := client.Dial(net.JoinHostPort(host, port), os.Stdout)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	if err := c.Run(os.Stdin); err != nil {
		log.Fatalf("client: %v", err)
	}
}

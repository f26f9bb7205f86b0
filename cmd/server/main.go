package main

import (
	"log"

	"chat-relay/internal/env"
	"chat-relay/internal/password"
	"chat-relay/internal/queue"
	"chat-relay/internal/rooms"
	"chat-relay/internal/server"
)

func main() {
	jobs := queue.NewManager(
		env.GetIntOrDefault(env.HashQueue, 64),
		env.GetIntOrDefault(env.HashWorkers, 4),
	)

	registry := rooms.NewRegistry(password.NewService(jobs))
	relay := server.New(env.GetOrDefault(env.RelayAddr, ":8080"), registry)

	httpServer := server.NewHTTPServer(env.GetOrDefault(env.HTTPAddr, ":8081"), relay)
	go httpServer.Run()

	if err := relay.Run(); err != nil {
		log.Fatalf("relay stopped: %v", err)
	}
}

// Command testserver runs a local ingestion endpoint for the simulator.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port    Port to listen on (default: 8080)
//	-host    Host to bind to (default: localhost)
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"assetsim/testserver"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	host := flag.String("host", "localhost", "host to bind to")
	flag.Parse()

	server := testserver.NewServer()
	addr := fmt.Sprintf("%s:%d", *host, *port)

	// Print available endpoints
	fmt.Println("Asset Telemetry Test Server")
	fmt.Println("===========================")
	fmt.Printf("Listening on http://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  POST /ingest              - Accept and record a telemetry event")
	fmt.Println("  POST /ingest/throttle     - Always respond 429")
	fmt.Println("  POST /ingest/fail-rate    - Fail percentage of requests (?rate=10)")
	fmt.Println("  POST /ingest/delay/{ms}   - Delay acceptance by milliseconds")
	fmt.Println("  GET  /health              - Health check")
	fmt.Println()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		os.Exit(0)
	}()

	log.Fatal(http.ListenAndServe(addr, server.Handler()))
}

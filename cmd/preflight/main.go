// cmd/preflight sanity-checks the environment before a deploy.
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	operator := strings.TrimSpace(os.Getenv("OPERATOR_API_KEYS"))
	ingest := strings.TrimSpace(os.Getenv("INGEST_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	gateway := strings.TrimSpace(os.Getenv("GATEWAY_URL"))
	token := strings.TrimSpace(os.Getenv("GATEWAY_TOKEN"))

	if operator == "" {
		warn("OPERATOR_API_KEYS empty — evaluate/unit routes will be open (dev mode).")
	}
	if ingest == "" {
		warn("INGEST_API_KEYS empty — heartbeat ingestion will be open (dev mode).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"OPERATOR_API_KEYS": operator, "INGEST_API_KEYS": ingest} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if addr == "" {
		warn("ADDR is empty; the app default will be used.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — the API will use in-memory stores; ledger state will not survive a restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if gateway == "" {
		fail("GATEWAY_URL empty — no notifications can be delivered.")
	}
	ok("GATEWAY_URL=" + gateway)
	if token == "" {
		warn("GATEWAY_TOKEN empty — the gateway may reject unauthenticated sends.")
	}

	ok("preflight passed")
}

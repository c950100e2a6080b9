// Command token mints a development credential for a given identity, for
// wiring up local clients and tests. Production token issuance lives with
// the dashboard's auth service, not here.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"teamboard/auth"
)

func main() {
	identity := flag.String("identity", "", "identity to embed in the token")
	secret := flag.String("secret", os.Getenv("AUTH_SECRET"), "signing secret (defaults to AUTH_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *identity == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: token -identity <id> [-secret <key>] [-ttl <duration>]")
		os.Exit(2)
	}

	token, err := auth.GenerateToken([]byte(*secret), *identity, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token generation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

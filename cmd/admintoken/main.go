// Command admintoken mints an admin API token signed with ADMIN_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"idcard-portal/internal/auth"
)

func main() {
	subject := flag.String("subject", "", "who the token is issued to, e.g. an operator email")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET"))
	if secret == "" {
		fmt.Fprintln(os.Stderr, "missing required env: ADMIN_JWT_SECRET")
		os.Exit(1)
	}
	if strings.TrimSpace(*subject) == "" {
		fmt.Fprintln(os.Stderr, "-subject is required")
		os.Exit(2)
	}

	token, err := auth.IssueAdminToken(secret, *subject, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

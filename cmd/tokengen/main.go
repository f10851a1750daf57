// tokengen mints operator JWTs for the admin endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"stampd/internal/platform/middleware"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	var (
		key     = flag.String("key", os.Getenv("JWT_SIGNING_KEY"), "signing key (defaults to JWT_SIGNING_KEY)")
		role    = flag.String("role", "ops", "token role (ops or admin)")
		subject = flag.String("subject", "", "token subject, e.g. an operator name")
		ttl     = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "tokengen: a signing key is required (-key or JWT_SIGNING_KEY)")
		os.Exit(1)
	}
	if *role != "ops" && *role != "admin" {
		fmt.Fprintln(os.Stderr, "tokengen: role must be ops or admin")
		os.Exit(1)
	}

	now := time.Now()
	claims := middleware.OpsClaims{
		Role: *role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*key))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: signing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

// stampctl runs the full client flow against a stampd instance using a local
// dev wallet: fetch a challenge, sign it, and request stamps.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"stampd/internal/identity"
	"stampd/internal/signer/local"
)

func main() {
	var (
		serviceURL = flag.String("url", "http://localhost:8080", "stampd base URL")
		secret     = flag.String("wallet", "dev-wallet", "dev wallet secret")
		types      = flag.String("types", "Simple", "comma-separated provider types")
		username   = flag.String("username", "", "username proof for the Simple provider")
	)
	flag.Parse()

	wallet := local.NewWallet(*secret)

	requested := strings.Split(*types, ",")
	payload := identity.RequestPayload{
		Address: wallet.Address(),
		Type:    requested[0],
		Version: "0.0.0",
		Proofs:  map[string]string{"valid": "true"},
	}
	if len(requested) > 1 {
		payload.Types = requested
	}
	if *username != "" {
		payload.Proofs["username"] = *username
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := identity.NewClient(*serviceURL)
	record, err := client.FetchVerifiableCredential(ctx, payload, wallet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stampctl: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	if len(record.Credentials) > 0 {
		_ = encoder.Encode(record.Credentials)
		return
	}
	if record.Error != "" {
		fmt.Fprintf(os.Stderr, "stampctl: verification rejected: %s\n", record.Error)
		os.Exit(1)
	}
	_ = encoder.Encode(identity.CredentialResponse{
		Record:     record.Record,
		Credential: record.Credential,
	})
}

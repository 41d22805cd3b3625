// Command gentoken mints a JWT for manual API testing. The subject must be
// the id of an existing user, since requests reload the user on every call.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/config"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token subject (required)")
	role := flag.String("role", string(auth.RoleAdmin), "role claim (Admin, TeamManager, Viewer)")
	configPath := flag.String("config", "", "YAML file of environment values (optional)")
	baseURL := flag.String("url", "http://localhost:8080", "server base URL for the example command")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		flag.Usage()
		os.Exit(2)
	}
	if !auth.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "Error: unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tokens := auth.NewJWTManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTExpiry(), cfg.Auth.JWTIssuer)
	token, err := tokens.Generate(*userID, auth.Role(*role))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("JWT Token:")
	fmt.Println(token)
	fmt.Println("\nTest with:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' %s/api/auth/me\n", token, *baseURL)
}

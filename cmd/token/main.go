package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/boardloop/turn-engine/internal/api/middleware/auth"
)

func main() {
	_ = godotenv.Load()

	playerID := flag.Int64("player", 0, "player id the token is bound to")
	hours := flag.Int("hours", 24, "token lifetime in hours")
	flag.Parse()

	if *playerID <= 0 {
		fmt.Println("Error: -player must be a positive player id")
		os.Exit(1)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("Error: JWT_SECRET environment variable is not set")
		os.Exit(1)
	}

	token, err := auth.GenerateJWT(*playerID, secret, *hours)
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Token for player %d:\n%s\n", *playerID, token)
}

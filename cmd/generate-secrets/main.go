package main

import (
	"fmt"
	"log"

	"github.com/servicedesk/repair-crm/internal/utils"
)

func main() {
	secret, err := utils.GenerateJWTSecret()
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("Add this to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secret)
	fmt.Println()
	fmt.Println("Keep it out of version control. Rotating it logs every user out.")
}

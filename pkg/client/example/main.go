package main

import (
	"context"
	"fmt"
	"log"

	"github.com/xueqianLu/dappdash/pkg/client"
)

const (
	baseURL   = "http://localhost:8080"
	apiKey    = ""
	apiSecret = ""
)

func main() {
	ctx := context.Background()
	c := client.NewClient(baseURL, apiKey, apiSecret)

	// 1. Health Check
	fmt.Println("1. Performing Health Check...")
	health, err := c.Health(ctx)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	fmt.Printf("   Health status: %s\n\n", health)

	// 2. Get All Accounts
	fmt.Println("2. Getting All Accounts...")
	accounts, err := c.GetAccounts(ctx)
	if err != nil {
		log.Fatalf("Failed to get accounts: %v", err)
	}
	fmt.Printf("   Available accounts: %v\n\n", accounts)
	if len(accounts) == 0 {
		log.Fatal("No signing account configured")
	}
	from := accounts[0]

	// 3. Read the token supply in display units
	fmt.Println("3. Reading Total Supply...")
	supply, err := c.Invoke(ctx, "totalSupply", client.ActionData{From: from}, client.ReturnUnitResult)
	if err != nil {
		log.Fatalf("Failed to read total supply: %v", err)
	}
	fmt.Printf("   %s: %v (%v)\n\n", supply.Envelope.Label, supply.Envelope.UnitResult, supply.Envelope.Result)

	// 4. Transfer tokens to a second account
	fmt.Println("4. Transferring 10 tokens...")
	transfer, err := c.Invoke(ctx, "transfer", client.ActionData{
		From:   from,
		To:     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount: "10",
	}, "")
	if err != nil {
		log.Fatalf("Failed to transfer: %v", err)
	}
	fmt.Printf("   %s: %v\n   Hint: %s\n\n", transfer.Envelope.Label, transfer.Envelope.Result, transfer.Envelope.Hint)

	// 5. Check the recipient balance
	fmt.Println("5. Checking Recipient Balance...")
	balance, err := c.Invoke(ctx, "balanceOf", client.ActionData{
		From:    from,
		Account: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	}, client.ReturnUnitResult)
	if err != nil {
		log.Fatalf("Failed to read balance: %v", err)
	}
	fmt.Printf("   Balance: %v\n", balance.Envelope.UnitResult)
}

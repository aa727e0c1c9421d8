// Command loadgen fires concurrent checkouts at a running server to verify
// that stock is never oversold under contention. Point it at a product with
// known stock and compare successes against that stock.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	productID := flag.Int64("product", 1, "product ID to contend on")
	stock := flag.Int("stock", 20, "expected starting stock of the product")
	requests := flag.Int("requests", 50, "number of concurrent buyers")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var successCount atomic.Int32
	var conflictCount atomic.Int32
	var errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func(buyer int) {
			defer wg.Done()

			userID := fmt.Sprintf("loadgen-user-%d", buyer)
			if ok := addToCart(client, *baseURL, userID, *productID); !ok {
				conflictCount.Add(1)
				return
			}
			switch checkout(client, *baseURL, userID) {
			case http.StatusOK:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			default:
				errorCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	conflict := conflictCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Expected Stock:   %d\n", *stock)
	fmt.Printf("Total Buyers:     %d\n", *requests)
	fmt.Printf("Orders Placed:    %d\n", success)
	fmt.Printf("Stock Conflicts:  %d\n", conflict)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	if int(success) <= *stock {
		fmt.Println("PASS: successful orders never exceeded available stock")
	} else {
		fmt.Printf("FAIL: %d orders placed against stock of %d\n", success, *stock)
	}
}

func addToCart(client *http.Client, baseURL, userID string, productID int64) bool {
	body, _ := json.Marshal(map[string]any{"product_id": productID, "quantity": 1})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/cart/items", bytes.NewReader(body))
	if err != nil {
		log.Printf("build cart request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("add to cart: %v", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func checkout(client *http.Client, baseURL, userID string) int {
	body, _ := json.Marshal(map[string]any{
		"delivery_address": "42 Market Road, Pune",
		"payment_method":   "Cash on Delivery",
	})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/checkout", bytes.NewReader(body))
	if err != nil {
		log.Printf("build checkout request: %v", err)
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("checkout: %v", err)
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

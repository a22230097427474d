//go:build ignore

// Command example demonstrates composing futures: asynchronous
// production, transformation, fan-in, and deadline-bound retrieval.
package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"futura.dev/exec"
	"futura.dev/future"
)

func main() {
	pool := exec.NewPool(4)

	greeting := future.CompleteAsyncOn[string](pool, func() string {
		time.Sleep(10 * time.Millisecond)
		return "hello"
	})
	shouted := future.Transform(greeting, strings.ToUpper)

	count := future.Retry(3, func() (int, error) {
		return 42, nil
	})

	both := future.All(shouted, count)
	if _, err := both.GetTimeout(time.Second); err != nil {
		log.Fatalf("waiting for futures: %v", err)
	}

	fmt.Println(shouted.GetNow(""), count.GetNow(0))
}

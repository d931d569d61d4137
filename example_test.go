package concierge_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/concierge"
)

// ExampleNew starts a conversation and prints the first form of the booking wizard.
func ExampleNew() {
	assistant, err := concierge.New(concierge.WithThinkLatency(0))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	sess, err := assistant.Open(ctx, "example")
	if err != nil {
		log.Fatal(err)
	}

	turn, err := sess.SubmitText(ctx, "book service")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(turn.Form.Title)
	fmt.Printf("step %d of %d\n", turn.Form.StepIndex+1, turn.Form.StepCount)
	for _, f := range turn.Form.Fields {
		fmt.Println("-", f.Label)
	}

	// Output:
	// 🚗 Customer & Vehicle Details
	// step 1 of 2
	// - Full Name
	// - Phone Number
	// - Vehicle Make
	// - Vehicle Model
	// - Plate Number
}

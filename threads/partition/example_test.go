package partition_test

import (
	"fmt"

	"github.com/cwbudde/algo-threads/threads/partition"
)

func ExampleSplit() {
	for _, s := range partition.Split(5, 4) {
		fmt.Printf("[%d,%d) ", s.Lo, s.Hi)
	}
	fmt.Println()

	// Output:
	// [0,2) [2,4) [4,5)
}

func ExamplePlan() {
	blockSize, workers := partition.Plan(5, 4)
	fmt.Println(blockSize, workers)

	// Output:
	// 2 3
}

// Command scalargrid reads simulation output on non-uniform 3D grids and
// cuts it into 2D slices, band images and raw field dumps.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command devboard manages Azure DevOps work items by business value.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

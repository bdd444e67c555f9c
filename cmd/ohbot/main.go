// Command ohbot drives an Ohbot-style animatronic head: idle motion,
// keyword gestures and lip animation while a dialogue agent speaks.
//
// Usage:
//
//	ohbot run --config ohbot.yaml
//	ohbot gesture agreement --backend serial
//	ohbot say "Yes, that's amazing"
//	ohbot center
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

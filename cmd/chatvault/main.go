// chatvault imports chat exports from ChatGPT, Claude, Gemini, Qwen and
// WhatsApp into an encrypted local SQLite vault.
package main

import "os"

// Version is set at build time.
var Version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

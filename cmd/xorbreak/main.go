package main

import (
	"fmt"
	"io"
	"os"
)

const productName = "xorbreak"

var version = "dev"

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) usage() {
	fmt.Fprintf(c.stderr, `%s breaks single-byte and repeating-key XOR ciphers.

Usage:
  %[1]s single [flags] <ciphertext>        crack one single-byte XOR ciphertext
  %[1]s detect [flags] <file>              find the single-byte XOR line in a file
  %[1]s repeating [flags] <file>           crack a repeating-key XOR ciphertext
  %[1]s keysizes [flags] <file>            rank likely repeating key sizes
  %[1]s encrypt -key <key> [flags] <file>  repeating-key XOR a file, printed as hex
  %[1]s fixed <hexA> <hexB>                XOR two equal-length hex strings
  %[1]s serve [flags]                      run the HTTP API
  %[1]s history list|show <id>             query stored results
  %[1]s config print                       print the resolved configuration
  %[1]s version

Use "-" as <file> to read standard input. Run "%[1]s <command> -h" for flags.
`, productName)
}

func (c *cli) run(args []string) int {
	if len(args) == 0 {
		c.usage()
		return 2
	}

	switch args[0] {
	case "single":
		return c.runSingle(args[1:])
	case "detect":
		return c.runDetect(args[1:])
	case "repeating":
		return c.runRepeating(args[1:])
	case "keysizes":
		return c.runKeySizes(args[1:])
	case "encrypt":
		return c.runEncrypt(args[1:])
	case "fixed":
		return c.runFixed(args[1:])
	case "serve":
		return c.runServe(args[1:])
	case "history":
		if len(args) < 2 {
			fmt.Fprintln(c.stderr, "history subcommand required")
			return 2
		}
		switch args[1] {
		case "list":
			return c.runHistoryList(args[2:])
		case "show":
			return c.runHistoryShow(args[2:])
		default:
			fmt.Fprintf(c.stderr, "unknown history subcommand: %s\n", args[1])
			return 2
		}
	case "config":
		return c.runConfig(args[1:])
	case "version", "-version", "--version":
		fmt.Fprintf(c.stdout, "%s %s\n", productName, version)
		return 0
	case "help", "-h", "-help", "--help":
		c.usage()
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown command: %s\n", args[0])
		c.usage()
		return 2
	}
}

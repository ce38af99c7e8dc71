// Command kvs-client is a short-connection CLI client for kvs-server: one
// subcommand, one TCP connection, one response, printed to stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/epokhe/kvs/internal/client"
)

const defaultAddr = "127.0.0.1:4000"

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  kvs-client set KEY VALUE [--addr IP:PORT]\n")
	fmt.Fprintf(os.Stderr, "  kvs-client get KEY [--addr IP:PORT]\n")
	fmt.Fprintf(os.Stderr, "  kvs-client rm KEY [--addr IP:PORT]\n")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	action := os.Args[1]
	args := os.Args[2:]

	switch action {
	case "set":
		runSet(args)
	case "get":
		runGet(args)
	case "rm":
		runRemove(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", action)
		usage()
	}
}

func runSet(args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "server address (IP:PORT)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}
	key, value := fs.Arg(0), fs.Arg(1)

	c := client.New(*addr)
	if err := c.Set(key, value); err != nil {
		fatal(err)
	}
}

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "server address (IP:PORT)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	key := fs.Arg(0)

	c := client.New(*addr)
	val, err := c.Get(key)
	if err != nil {
		fatal(err)
	}
	if val == nil {
		fmt.Println("Key not found")
		return
	}
	fmt.Println(*val)
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "server address (IP:PORT)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	key := fs.Arg(0)

	c := client.New(*addr)
	if err := c.Remove(key); err != nil {
		var remoteErr *client.RemoteError
		if errors.As(err, &remoteErr) && strings.Contains(remoteErr.Message, "key not found") {
			fmt.Println("Key not found")
			os.Exit(1)
		}
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

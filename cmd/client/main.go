// Command client is the interactive driver for the distributed file service:
// it registers with a Name Server and reads verb-first command lines from
// stdin until EXIT or EOF (§6 CLI surface).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/dfs/pkg/client"
	"github.com/marmos91/dfs/pkg/wire"
	"github.com/spf13/cobra"
)

var (
	nsAddress     string
	username      string
	advertiseIP   string
	advertisePort int
)

var rootCmd = &cobra.Command{
	Use:           "client",
	Short:         "Interactive client for the distributed file service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&nsAddress, "ns", "127.0.0.1:9000", "name server address")
	rootCmd.Flags().StringVar(&username, "user", "", "username to register as (required)")
	rootCmd.Flags().StringVar(&advertiseIP, "advertise-ip", "127.0.0.1", "IP advertised to the name server")
	rootCmd.Flags().IntVar(&advertisePort, "advertise-port", 0, "port advertised to the name server")
	_ = rootCmd.MarkFlagRequired("user")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	c, err := client.Dial(nsAddress, username, advertiseIP, advertisePort)
	if err != nil {
		return fmt.Errorf("connect to name server: %w", err)
	}
	defer c.Close()

	repl(c, os.Stdin, os.Stdout)
	return nil
}

func repl(c *client.Client, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintf(w, "connected as %s\n", username)
	w.Flush()

	for {
		fmt.Fprint(w, "> ")
		w.Flush()
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		verb := strings.ToUpper(fields[0])
		if verb == "EXIT" {
			return
		}
		if err := dispatch(c, w, verb, fields[1:]); err != nil {
			fmt.Fprintf(w, "ERROR: %v\n", err)
		}
		w.Flush()
	}
}

func dispatch(c *client.Client, w *bufio.Writer, verb string, args []string) error {
	switch verb {
	case "VIEW":
		var flags uint16
		for _, a := range args {
			switch a {
			case "-a":
				flags |= wire.FlagAll
			case "-l":
				flags |= wire.FlagLong
			}
		}
		out, err := c.View(flags)
		return printResult(w, out, err)

	case "CREATE":
		if len(args) < 1 {
			return fmt.Errorf("usage: CREATE <file>")
		}
		return c.Create(args[0])

	case "READ":
		if len(args) < 1 {
			return fmt.Errorf("usage: READ <file>")
		}
		out, err := c.Read(args[0])
		return printResult(w, out, err)

	case "DELETE":
		if len(args) < 1 {
			return fmt.Errorf("usage: DELETE <file>")
		}
		return c.Delete(args[0])

	case "INFO":
		if len(args) < 1 {
			return fmt.Errorf("usage: INFO <file>")
		}
		out, err := c.Info(args[0])
		return printResult(w, out, err)

	case "LIST":
		if len(args) < 1 {
			return fmt.Errorf("usage: LIST <file>")
		}
		out, err := c.List(args[0])
		return printResult(w, out, err)

	case "RECENTS":
		out, err := c.Recents()
		return printResult(w, out, err)

	case "STREAM":
		if len(args) < 1 {
			return fmt.Errorf("usage: STREAM <file>")
		}
		return c.Stream(args[0], func(word string) bool {
			fmt.Fprintf(w, "%s ", word)
			w.Flush()
			return true
		})

	case "WRITE":
		if len(args) < 1 {
			return fmt.Errorf("usage: WRITE <file> <sentence>")
		}
		return writeInteractive(c, w, args[0], args[1:])

	case "UNDO":
		if len(args) < 1 {
			return fmt.Errorf("usage: UNDO <file>")
		}
		return c.Undo(args[0])

	case "CHECKPOINT":
		if len(args) < 2 {
			return fmt.Errorf("usage: CHECKPOINT <file> <tag>")
		}
		return c.Checkpoint(args[0], args[1])

	case "VIEWCHECKPOINT":
		if len(args) < 2 {
			return fmt.Errorf("usage: VIEWCHECKPOINT <file> <tag>")
		}
		out, err := c.ViewCheckpoint(args[0], args[1])
		return printResult(w, out, err)

	case "REVERT":
		if len(args) < 2 {
			return fmt.Errorf("usage: REVERT <file> <tag>")
		}
		return c.Revert(args[0], args[1])

	case "LISTCHECKPOINTS":
		if len(args) < 1 {
			return fmt.Errorf("usage: LISTCHECKPOINTS <file>")
		}
		out, err := c.ListCheckpoints(args[0])
		return printResult(w, out, err)

	case "ADDACCESS":
		return addAccess(c, args)

	case "REMACCESS":
		if len(args) < 2 {
			return fmt.Errorf("usage: REMACCESS <file> <user>")
		}
		return c.RemoveAccess(args[0], args[1])

	case "REQACCESS":
		return reqAccess(c, args)

	case "VIEWREQUESTS":
		if len(args) < 1 {
			return fmt.Errorf("usage: VIEWREQUESTS <file>")
		}
		out, err := c.ViewRequests(args[0])
		return printResult(w, out, err)

	case "APPROVE":
		if len(args) < 2 {
			return fmt.Errorf("usage: APPROVE <file> <user>")
		}
		return c.Approve(args[0], args[1])

	case "DENY":
		if len(args) < 2 {
			return fmt.Errorf("usage: DENY <file> <user>")
		}
		return c.Deny(args[0], args[1])

	case "CREATEFOLDER":
		if len(args) < 1 {
			return fmt.Errorf("usage: CREATEFOLDER <path>")
		}
		return c.CreateFolder(args[0])

	case "MOVE":
		if len(args) < 2 {
			return fmt.Errorf("usage: MOVE <file> <folder>")
		}
		return c.Move(args[0], args[1])

	case "VIEWFOLDER":
		if len(args) < 1 {
			return fmt.Errorf("usage: VIEWFOLDER <folder>")
		}
		out, err := c.ViewFolder(args[0])
		return printResult(w, out, err)

	default:
		return fmt.Errorf("unrecognized command %q", verb)
	}
}

func printResult(w *bufio.Writer, out string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(w, out)
	return nil
}

// writeInteractive reads phrase-insertion lines from stdin until a blank
// line, matching the multi-line WRITE body of the CLI surface.
func writeInteractive(c *client.Client, w *bufio.Writer, filename string, rest []string) error {
	if len(rest) < 1 {
		return fmt.Errorf("usage: WRITE <file> <sentence>")
	}
	sentence, err := strconv.Atoi(rest[0])
	if err != nil {
		return fmt.Errorf("invalid sentence index %q: %w", rest[0], err)
	}

	fmt.Fprintln(w, "enter lines as '<word_index> <phrase>', blank line to send:")
	w.Flush()
	scanner := bufio.NewScanner(os.Stdin)
	var lines []client.WriteLine
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}
		parts := strings.SplitN(text, " ", 2)
		if len(parts) != 2 {
			fmt.Fprintln(w, "expected '<word_index> <phrase>'")
			continue
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			fmt.Fprintf(w, "invalid word index %q\n", parts[0])
			continue
		}
		lines = append(lines, client.WriteLine{WordIndex: int32(idx), Phrase: parts[1]})
	}
	return c.Write(filename, int32(sentence), lines)
}

func addAccess(c *client.Client, args []string) error {
	write := false
	var rest []string
	for _, a := range args {
		switch a {
		case "-R":
			write = false
		case "-W":
			write = true
		default:
			rest = append(rest, a)
		}
	}
	if len(rest) < 2 {
		return fmt.Errorf("usage: ADDACCESS (-R|-W) <file> <user>")
	}
	return c.AddAccess(rest[0], rest[1], write)
}

func reqAccess(c *client.Client, args []string) error {
	write := false
	var rest []string
	for _, a := range args {
		switch a {
		case "-R":
			write = false
		case "-W":
			write = true
		default:
			rest = append(rest, a)
		}
	}
	if len(rest) < 1 {
		return fmt.Errorf("usage: REQACCESS (-R|-W) <file>")
	}
	return c.RequestAccess(rest[0], write)
}

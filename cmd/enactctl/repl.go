package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ergochat/readline"
	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/invocation"
	"github.com/agentic-ai/enact-go/store"
)

var replCompleter = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("commit"),
	readline.PcItem("checkout"),
	readline.PcItem("show"),
	readline.PcItem("graph"),
	readline.PcItem("multihash"),
	readline.PcItem("invoke"),
	readline.PcItem("replay"),
	readline.PcItem("rewind"),
	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

const replHelp = `commands:
  commit <type-id> <json-fields>       commit a resource, print its digest
  checkout <digest>                    print a resource as JSON
  show <digest>                        print a resource as an indented tree
  graph <digest> [max-depth]           print the ref dependency graph
  multihash <digest>                   print a resource's alternate BLAKE3 multihash
  invoke <invokable-digest> <input-digest> [nonstrict]
                                        invoke a committed Invokable, print the invocation digest
  replay <invocation-digest> [nonstrict]
                                        re-execute a recorded invocation, print the new digest
  rewind <invocation-digest> <n>       drop the last n leaf calls, print the new digest
  help                                 print this message
  exit, quit                           leave the REPL
`

func filterInput(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

func historyFilePath() string {
	return filepath.Join(os.TempDir(), "enactctl_history.tmp")
}

// runREPL is enactctl's interactive loop, grounded on
// drpcorg-chotki/cmd/main.go's readline setup and split-and-switch command
// dispatch, generalized from Chotki's object commands to the store/
// invocation command set below.
func runREPL(ctx context.Context, s *store.Store, logger enactlog.Logger) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:              "enact> ",
		HistoryFile:         historyFilePath(),
		AutoComplete:        replCompleter,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := dispatch(ctx, s, logger, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		}
	}
	return nil
}

func dispatch(ctx context.Context, s *store.Store, logger enactlog.Logger, line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		fmt.Print(replHelp)
		return nil

	case "exit", "quit":
		os.Exit(0)
		return nil

	case "commit":
		if len(args) < 1 {
			return errors.New("usage: commit <type-id> <json-fields>")
		}
		typeID := args[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmd+" "+typeID))
		if rest == "" {
			rest = "{}"
		}
		ref, err := doCommit(ctx, s, typeID, []byte(rest))
		if err != nil {
			return err
		}
		fmt.Println(ref.Digest().Hex())
		return nil

	case "checkout":
		if len(args) != 1 {
			return errors.New("usage: checkout <digest>")
		}
		res, err := doCheckout(ctx, s, args[0])
		if err != nil {
			return err
		}
		j, err := resourceToJSON(res)
		if err != nil {
			return err
		}
		enc, err := json.MarshalIndent(j, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(enc))
		return nil

	case "show":
		if len(args) != 1 {
			return errors.New("usage: show <digest>")
		}
		text, err := doShow(ctx, s, args[0])
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil

	case "graph":
		if len(args) < 1 {
			return errors.New("usage: graph <digest> [max-depth]")
		}
		maxDepth := 0
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrap(err, "bad max-depth")
			}
			maxDepth = n
		}
		graph, err := doGraph(ctx, s, args[0], maxDepth)
		if err != nil {
			return err
		}
		for node, deps := range graph {
			fmt.Printf("%s -> %s\n", node, strings.Join(deps, ", "))
		}
		return nil

	case "multihash":
		if len(args) != 1 {
			return errors.New("usage: multihash <digest>")
		}
		mh, code, err := doMultihash(ctx, s, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (multicodec 0x%x)\n", mh, code)
		return nil

	case "invoke":
		if len(args) < 2 {
			return errors.New("usage: invoke <invokable-digest> <input-digest> [nonstrict]")
		}
		opts := []invocation.InvokeOption{invocation.WithLogger(logger)}
		if len(args) == 3 && args[2] == "nonstrict" {
			opts = append(opts, invocation.WithNonStrict())
		}
		ref, err := doInvoke(ctx, s, opts, args[0], args[1])
		if ref != nil {
			fmt.Println(ref.Digest().Hex())
		}
		return err

	case "replay":
		if len(args) < 1 {
			return errors.New("usage: replay <invocation-digest> [nonstrict]")
		}
		opts := []invocation.InvokeOption{invocation.WithLogger(logger)}
		if len(args) == 2 && args[1] == "nonstrict" {
			opts = append(opts, invocation.WithNonStrict())
		}
		ref, err := doReplay(ctx, s, opts, args[0])
		if ref != nil {
			fmt.Println(ref.Digest().Hex())
		}
		return err

	case "rewind":
		if len(args) != 2 {
			return errors.New("usage: rewind <invocation-digest> <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "bad n")
		}
		ref, err := doRewind(ctx, s, args[0], n)
		if err != nil {
			return err
		}
		fmt.Println(ref.Digest().Hex())
		return nil

	default:
		return errors.Errorf("command unknown: %s", cmd)
	}
}

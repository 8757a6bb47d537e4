package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/invocation"
	"github.com/agentic-ai/enact-go/store"
)

// RootOptions holds the flags shared by every enactctl subcommand.
//
// Grounded on roach88-nysm/brutalist/internal/cli/root.go's
// RootOptions/NewRootCommand split: a flat options struct threaded through
// every NewXCommand constructor, resolved once in PersistentPreRunE.
type RootOptions struct {
	ConfigPath string
	store      *store.Store
	logger     enactlog.Logger
}

// NewRootCommand builds enactctl's cobra command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "enactctl",
		Short: "enactctl - inspect and drive an Enact resource store",
		Long: "enactctl commits resources, checks them out, and invokes, replays\n" +
			"and rewinds journaled Invocations against a content-addressed store.\n" +
			"Run with no subcommand to enter an interactive REPL.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.logger = enactlog.New(cfg.SlogLevel())
			s, err := openStore(cfg, opts.logger, nil)
			if err != nil {
				return err
			}
			opts.store = s
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), opts.store, opts.logger)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to enactctl YAML config")

	cmd.AddCommand(NewConfigCommand())
	cmd.AddCommand(NewCommitCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewMultihashCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewRewindCommand(opts))

	return cmd
}

// NewConfigCommand groups config-file management subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage the enactctl YAML config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "init <path>",
		Short:         "write a commented default config file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return WriteDefaultConfig(args[0])
		},
	})
	return cmd
}

// NewCommitCommand commits a resource from a JSON field literal.
func NewCommitCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "commit <type-id> <json-fields>",
		Short:         "commit a resource, printing its digest",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := doCommit(cmd.Context(), root.store, args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref.Digest().Hex())
			return nil
		},
	}
}

// NewCheckoutCommand prints a resource as JSON.
func NewCheckoutCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "checkout <digest>",
		Short:         "check out a resource, printing it as JSON",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := doCheckout(cmd.Context(), root.store, args[0])
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
			fmt.Fprintln(cmd.OutOrStdout(), string(enc))
			return nil
		},
	}
}

// NewShowCommand prints a resource as an indented human-readable tree.
func NewShowCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <digest>",
		Short:         "print a resource as an indented tree",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := doShow(cmd.Context(), root.store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// NewGraphCommand prints a digest's ref dependency graph.
func NewGraphCommand(root *RootOptions) *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:           "graph <digest>",
		Short:         "print the ref dependency graph rooted at a digest",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := doGraph(cmd.Context(), root.store, args[0], maxDepth)
			if err != nil {
				return err
			}
			for node, deps := range graph {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", node, strings.Join(deps, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum traversal depth (0 = unbounded)")
	return cmd
}

// NewInvokeCommand invokes a committed Invokable against a committed input.
func NewInvokeCommand(root *RootOptions) *cobra.Command {
	var nonStrict bool
	cmd := &cobra.Command{
		Use:           "invoke <invokable-digest> <input-digest>",
		Short:         "invoke a committed Invokable, printing the invocation digest",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []invocation.InvokeOption{invocation.WithLogger(root.logger)}
			if nonStrict {
				opts = append(opts, invocation.WithNonStrict())
			}
			ref, err := doInvoke(cmd.Context(), root.store, opts, args[0], args[1])
			if ref != nil {
				fmt.Fprintln(cmd.OutOrStdout(), ref.Digest().Hex())
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&nonStrict, "nonstrict", false, "replay in non-strict mode")
	return cmd
}

// NewReplayCommand re-executes a recorded Invocation.
func NewReplayCommand(root *RootOptions) *cobra.Command {
	var nonStrict bool
	cmd := &cobra.Command{
		Use:           "replay <invocation-digest>",
		Short:         "re-execute a recorded invocation, printing the new digest",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []invocation.InvokeOption{invocation.WithLogger(root.logger)}
			if nonStrict {
				opts = append(opts, invocation.WithNonStrict())
			}
			ref, err := doReplay(cmd.Context(), root.store, opts, args[0])
			if ref != nil {
				fmt.Fprintln(cmd.OutOrStdout(), ref.Digest().Hex())
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&nonStrict, "nonstrict", false, "replay in non-strict mode")
	return cmd
}

// NewRewindCommand drops the last n leaf calls from a recorded Invocation.
func NewRewindCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rewind <invocation-digest> <n>",
		Short:         "drop the last n leaf calls, printing the new digest",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrap(err, "bad n")
			}
			ref, err := doRewind(cmd.Context(), root.store, args[0], n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref.Digest().Hex())
			return nil
		},
	}
}

// NewMultihashCommand prints a resource's alternate self-describing BLAKE3
// multihash (digest/multihash.go), for interop with multihash/CID-based
// systems outside Enact's own SHA-256 content addressing.
func NewMultihashCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "multihash <digest>",
		Short:         "print a resource's alternate BLAKE3 multihash",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mh, code, err := doMultihash(cmd.Context(), root.store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (multicodec 0x%x)\n", mh, code)
			return nil
		},
	}
}

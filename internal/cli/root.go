// Package cli implements the nekozukan command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"nekozukan/internal/client"
	"nekozukan/internal/config"
	"nekozukan/internal/views"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	likedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

type rootOptions struct {
	apiURL  string
	verbose bool
}

// env carries what subcommands need.
type env struct {
	out    io.Writer
	errOut io.Writer
	opts   *rootOptions
	// newClient is replaceable in tests.
	newClient func(ctx context.Context, notifier views.Notifier) (*client.Client, error)
}

func (e *env) client(ctx context.Context) (*client.Client, error) {
	return e.newClient(ctx, e.stderrNotifier())
}

func (e *env) stderrNotifier() views.Notifier {
	return views.NotifierFunc(func(kind views.ToastKind, msg string) {
		if kind == views.ToastError {
			fmt.Fprintln(e.errOut, errStyle.Render(msg))
			return
		}
		fmt.Fprintln(e.errOut, msg)
	})
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{}
	e := &env{out: out, errOut: errOut, opts: opts}
	e.newClient = func(ctx context.Context, notifier views.Notifier) (*client.Client, error) {
		cfg, err := config.LoadClientConfig()
		if err != nil {
			return nil, err
		}
		if opts.apiURL != "" {
			cfg.APIURL = opts.apiURL
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
		}
		return client.New(ctx, cfg, client.NewLogger(errOut, opts.verbose), notifier), nil
	}
	return newRoot(e)
}

func newRoot(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "nekozukan",
		Short:         "Browse, like and post cat photos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(e.out)
	root.SetErr(e.errOut)
	root.PersistentFlags().StringVar(&e.opts.apiURL, "api", "", "API base URL (overrides NEKOZUKAN_API_URL)")
	root.PersistentFlags().BoolVarP(&e.opts.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddGroup(
		&cobra.Group{ID: "browse", Title: "Browsing:"},
		&cobra.Group{ID: "act", Title: "Actions:"},
	)
	root.AddCommand(
		newFeedCmd(e),
		newShowCmd(e),
		newCommentsCmd(e),
		newBrowseCmd(e),
		newLikeCmd(e, true),
		newLikeCmd(e, false),
		newCommentCmd(e),
		newPostCmd(e),
		newWhoamiCmd(e),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

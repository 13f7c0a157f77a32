package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"nekozukan/internal/client"
	"nekozukan/internal/remote"
	"nekozukan/internal/tui"
	"nekozukan/internal/views"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func parsePostID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid post id %q", arg)
	}
	return uint(id), nil
}

func newFeedCmd(e *env) *cobra.Command {
	var (
		order  string
		offset int
	)
	cmd := &cobra.Command{
		Use:     "feed",
		Aliases: []string{"ls"},
		Short:   "List posts",
		GroupID: "browse",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			cards := c.Feed.Load(cmd.Context(), views.Query{Offset: offset, Order: order})
			if len(cards) == 0 {
				fmt.Fprintln(e.out, subtleStyle.Render("まだ投稿がありません"))
				return nil
			}
			for _, card := range cards {
				printCard(e.out, card.Post, c.Registry.State(card.View))
			}
			if c.Feed.HasMore() {
				fmt.Fprintln(e.out, subtleStyle.Render(fmt.Sprintf("more: nekozukan feed --order %s --offset %d", c.Feed.Order(), offset+len(cards))))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&order, "order", remote.OrderNew, "sort order: new or likes")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of posts to skip")
	return cmd
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "show <post-id>",
		Short:   "Show a post with its comments",
		GroupID: "browse",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			post, err := c.Store.GetPost(cmd.Context(), id)
			if err != nil {
				return err
			}
			dv := c.Detail.Open(cmd.Context(), *post, c.Identity.IsLiked(id), post.LikesCount)
			defer c.Detail.Close()

			printCard(e.out, dv.Post, c.Registry.State(dv.View))
			fmt.Fprintln(e.out, subtleStyle.Render(post.ImageURL))
			if post.Description != nil && *post.Description != "" {
				fmt.Fprintln(e.out, *post.Description)
			}
			printDrift(cmd.Context(), e.out, c, id)
			fmt.Fprintf(e.out, "\n💬 %d\n", dv.CommentCount())
			printComments(e.out, dv.Comments())
			return nil
		},
	}
}

func newCommentsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "comments <post-id>",
		Short:   "List comments on a post, oldest first",
		GroupID: "browse",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			printComments(e.out, c.Store.ListComments(cmd.Context(), id))
			return nil
		},
	}
}

func newBrowseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "browse",
		Aliases: []string{"tui"},
		Short:   "Open the interactive feed",
		GroupID: "browse",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			toasts := tui.NewToasts()
			c, err := e.newClient(cmd.Context(), toasts)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), c, toasts)
		},
	}
}

func newLikeCmd(e *env, like bool) *cobra.Command {
	use, short := "like <post-id>", "Like a post"
	if !like {
		use, short = "unlike <post-id>", "Remove your like from a post"
	}
	return &cobra.Command{
		Use:     use,
		Short:   short,
		GroupID: "act",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			post, err := c.Store.GetPost(cmd.Context(), id)
			if err != nil {
				return err
			}
			view := c.Registry.Mount(id, views.KindCard, c.Identity.IsLiked(id), post.LikesCount)
			defer c.Registry.Unmount(view)

			var out views.Outcome
			if like {
				out, err = c.Sync.Like(cmd.Context(), id, view)
			} else {
				out, err = c.Sync.Unlike(cmd.Context(), id, view)
			}
			if err != nil {
				switch {
				case like && errors.Is(err, remote.ErrConflict):
					return fmt.Errorf("already liked post %d", id)
				case !like && errors.Is(err, remote.ErrNotFound):
					return fmt.Errorf("post %d is not liked", id)
				}
				return err
			}
			printCard(e.out, *post, views.State{PostID: id, Liked: out.Liked, Count: out.Count, Enabled: true})
			return nil
		},
	}
}

func newCommentCmd(e *env) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "comment <post-id> <text>",
		Short:   "Comment on a post",
		GroupID: "act",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			content := strings.Join(args[1:], " ")
			if strings.TrimSpace(content) == "" {
				return views.ErrEmptyComment
			}
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			created, err := c.Comments.Submit(cmd.Context(), id, name, content)
			if err != nil {
				return err
			}
			printComments(e.out, []remote.Comment{*created})
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (anonymous when empty)")
	return cmd
}

func newPostCmd(e *env) *cobra.Command {
	var in client.PostInput
	cmd := &cobra.Command{
		Use:     "post <image-file>",
		Short:   "Upload a cat photo",
		GroupID: "act",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ImagePath = args[0]
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			post, err := c.CreatePost(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, okStyle.Render("🎉 投稿しました！"))
			printCard(e.out, *post, views.State{PostID: post.ID, Count: post.LikesCount, Enabled: true})
			return nil
		},
	}
	cmd.Flags().StringVar(&in.CatName, "cat", "", "the cat's name (required)")
	cmd.Flags().StringVarP(&in.PosterName, "name", "n", "", "your display name")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "description")
	cmd.Flags().StringSliceVarP(&in.Tags, "tag", "t", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("cat")
	return cmd
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the local visitor id and liked posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.client(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "visitor: %s\n", c.Identity.VisitorID())
			fmt.Fprintf(e.out, "storage: %s\n", c.Config.StoragePath)
			ids := c.Identity.LikedIDs()
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatUint(uint64(id), 10)
			}
			fmt.Fprintf(e.out, "liked:   [%s]\n", strings.Join(parts, ", "))
			if c.Mutator.Atomic() {
				fmt.Fprintln(e.out, "likes:   atomic")
			}
			return nil
		},
	}
}

// printDrift notes when the server's like record disagrees with the local
// liked set. The local set stays authoritative for display.
func printDrift(ctx context.Context, w io.Writer, c *client.Client, postID uint) {
	checker, ok := any(c.Store).(remote.LikeChecker)
	if !ok {
		return
	}
	server, err := checker.HasLiked(ctx, postID, c.Identity.VisitorID())
	if err != nil {
		c.Log.Debug("like check failed", "post_id", postID, "error", err)
		return
	}
	if local := c.Identity.IsLiked(postID); local != server {
		fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("(server: liked=%t, local: liked=%t)", server, local)))
	}
}

func printCard(w io.Writer, p remote.Post, st views.State) {
	name := p.PosterName
	if strings.TrimSpace(name) == "" {
		name = views.AnonymousName
	}
	heart := fmt.Sprintf("♡ %d", st.Count)
	if st.Liked {
		heart = likedStyle.Render(fmt.Sprintf("♥ %d", st.Count))
	}
	line := fmt.Sprintf("#%d %s  %s  %s", p.ID, titleStyle.Render(p.CatName), heart,
		subtleStyle.Render(name+" · "+humanize.RelTime(p.CreatedAt, time.Now(), "ago", "from now")))
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = tagStyle.Render("#" + t)
		}
		line += "  " + strings.Join(tags, " ")
	}
	fmt.Fprintln(w, line)
}

func printComments(w io.Writer, comments []remote.Comment) {
	for _, c := range comments {
		name := c.PosterName
		if strings.TrimSpace(name) == "" {
			name = views.AnonymousName
		}
		fmt.Fprintf(w, "  %s %s\n    %s\n", titleStyle.Render(name),
			subtleStyle.Render(humanize.Time(c.CreatedAt)), c.Content)
	}
}

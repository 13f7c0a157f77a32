// Package tui is the interactive terminal feed.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nekozukan/internal/client"
	"nekozukan/internal/remote"
	"nekozukan/internal/views"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const toastTTL = 3 * time.Second

type (
	feedLoadedMsg struct {
		cards  []views.Card
		append bool
	}
	detailOpenedMsg struct{ dv *views.DetailView }
	likeDoneMsg     struct {
		out views.Outcome
		err error
	}
	commentDoneMsg struct{ err error }
	toastMsg       struct {
		kind views.ToastKind
		text string
	}
	clearToastMsg struct{ seq int }
)

// Toasts is a views.Notifier feeding the TUI.
type Toasts chan toastMsg

func NewToasts() Toasts { return make(Toasts, 16) }

func (t Toasts) Toast(kind views.ToastKind, text string) {
	select {
	case t <- toastMsg{kind: kind, text: text}:
	default:
	}
}

func (t Toasts) next() tea.Cmd {
	return func() tea.Msg { return <-t }
}

// Model is the bubbletea model for the feed.
type Model struct {
	ctx    context.Context
	c      *client.Client
	toasts Toasts

	cards  []views.Card
	cursor int
	detail *views.DetailView

	commenting bool
	input      textinput.Model

	toast    string
	toastErr bool
	toastSeq int
	loading  bool
	width    int
	now      func() time.Time
}

// New creates a model. toasts must be the notifier c was built with.
func New(ctx context.Context, c *client.Client, toasts Toasts) Model {
	in := textinput.New()
	in.Placeholder = "コメントを書く"
	in.CharLimit = views.MaxCommentLen
	return Model{ctx: ctx, c: c, toasts: toasts, input: in, loading: true, now: time.Now}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(views.Query{Order: remote.OrderNew}), m.toasts.next())
}

func (m Model) load(q views.Query) tea.Cmd {
	return func() tea.Msg {
		return feedLoadedMsg{cards: m.c.Feed.Load(m.ctx, q)}
	}
}

func (m Model) nextPage() tea.Cmd {
	return func() tea.Msg {
		return feedLoadedMsg{cards: m.c.Feed.NextPage(m.ctx), append: true}
	}
}

func (m Model) toggle(postID uint, from *views.PostView) tea.Cmd {
	return func() tea.Msg {
		out, err := m.c.Sync.Toggle(m.ctx, postID, from)
		return likeDoneMsg{out: out, err: err}
	}
}

func (m Model) open(card views.Card) tea.Cmd {
	return func() tea.Msg {
		st := m.c.Registry.State(card.View)
		return detailOpenedMsg{dv: m.c.Detail.Open(m.ctx, card.Post, st.Liked, st.Count)}
	}
}

func (m Model) submit(postID uint, content string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.c.Comments.Submit(m.ctx, postID, "", content)
		return commentDoneMsg{err: err}
	}
}

func (m *Model) setToast(text string, isErr bool) tea.Cmd {
	m.toast = text
	m.toastErr = isErr
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case feedLoadedMsg:
		m.loading = false
		if msg.append {
			m.cards = append(m.cards, msg.cards...)
		} else {
			m.cards = msg.cards
			m.cursor = 0
		}
		return m, nil

	case detailOpenedMsg:
		m.detail = msg.dv
		return m, nil

	case likeDoneMsg:
		// Failures already raised a toast through the notifier.
		if errors.Is(msg.err, views.ErrMutationInFlight) {
			return m, m.setToast("処理中です", false)
		}
		return m, nil

	case commentDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, views.ErrEmptyComment) {
				return m, m.setToast("コメントを入力してください", true)
			}
			return m, nil
		}
		return m, m.setToast("コメントを投稿しました", false)

	case toastMsg:
		return m, tea.Batch(m.setToast(msg.text, msg.kind == views.ToastError), m.toasts.next())

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.commenting {
			return m.updateComment(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.commenting = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.commenting = false
		m.input.Blur()
		content := m.input.Value()
		m.input.SetValue("")
		return m, m.submit(m.detail.Post.ID, content)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.detail != nil && msg.String() == "q" {
			m.c.Detail.Close()
			m.detail = nil
			return m, nil
		}
		return m, tea.Quit
	case "esc":
		if m.detail != nil {
			m.c.Detail.Close()
			m.detail = nil
		}
		return m, nil
	}

	if m.detail != nil {
		switch msg.String() {
		case "l", " ":
			if m.c.Registry.State(m.detail.View).Enabled {
				return m, m.toggle(m.detail.Post.ID, m.detail.View)
			}
		case "c":
			m.commenting = true
			return m, m.input.Focus()
		}
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.cards)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if card, ok := m.selected(); ok {
			return m, m.open(card)
		}
	case "l", " ":
		if card, ok := m.selected(); ok && m.c.Registry.State(card.View).Enabled {
			return m, m.toggle(card.Post.ID, card.View)
		}
	case "n":
		if m.c.Feed.HasMore() {
			return m, m.nextPage()
		}
	case "o":
		order := remote.OrderLikes
		if m.c.Feed.Order() == remote.OrderLikes {
			order = remote.OrderNew
		}
		m.loading = true
		return m, m.load(views.Query{Order: order})
	case "r":
		m.loading = true
		return m, m.load(views.Query{Order: m.c.Feed.Order()})
	}
	return m, nil
}

func (m Model) selected() (views.Card, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return views.Card{}, false
	}
	return m.cards[m.cursor], true
}

func (m Model) View() string {
	var b strings.Builder
	order := "新着順"
	if m.c.Feed.Order() == remote.OrderLikes {
		order = "いいね順"
	}
	b.WriteString(titleStyle.Render("🐱 ねこ図鑑") + "  " + subtleStyle.Render(order) + "\n\n")

	if m.detail != nil {
		b.WriteString(m.renderDetail())
	} else {
		b.WriteString(m.renderFeed())
	}

	b.WriteString("\n")
	if m.toast != "" {
		if m.toastErr {
			b.WriteString(errorStyle.Render(m.toast))
		} else {
			b.WriteString(okStyle.Render(m.toast))
		}
		b.WriteString("\n")
	}
	if m.detail != nil {
		b.WriteString(helpStyle.Render("l: いいね  c: コメント  esc: 閉じる"))
	} else {
		b.WriteString(helpStyle.Render("j/k: 移動  enter: 詳細  l: いいね  o: 並び替え  n: もっと見る  r: 更新  q: 終了"))
	}
	return b.String()
}

func (m Model) renderFeed() string {
	if m.loading {
		return subtleStyle.Render("読み込み中...") + "\n"
	}
	if len(m.cards) == 0 {
		return subtleStyle.Render("まだ投稿がありません") + "\n"
	}
	var b strings.Builder
	for i, card := range m.cards {
		style := cardStyle
		if i == m.cursor {
			style = activeCardStyle
		}
		b.WriteString(style.Render(m.cardBody(card.Post, m.c.Registry.State(card.View))))
		b.WriteString("\n")
	}
	if m.c.Feed.HasMore() {
		b.WriteString(subtleStyle.Render("n: もっと見る") + "\n")
	}
	return b.String()
}

func (m Model) cardBody(p remote.Post, st views.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.CatName))
	b.WriteString("  " + subtleStyle.Render(displayName(p.PosterName)+" · "+humanize.RelTime(p.CreatedAt, m.now(), "ago", "from now")))
	b.WriteString("\n" + likeLabel(st))
	if tags := renderTags(p.Tags); tags != "" {
		b.WriteString("  " + tags)
	}
	return b.String()
}

func (m Model) renderDetail() string {
	dv := m.detail
	p := dv.Post
	var b strings.Builder
	b.WriteString(m.cardBody(p, m.c.Registry.State(dv.View)))
	b.WriteString("\n" + subtleStyle.Render(p.ImageURL) + "\n")
	if p.Description != nil && *p.Description != "" {
		b.WriteString("\n" + *p.Description + "\n")
	}
	b.WriteString(fmt.Sprintf("\n💬 コメント (%d)\n", dv.CommentCount()))
	for _, c := range dv.Comments() {
		b.WriteString(fmt.Sprintf("  %s %s\n    %s\n",
			titleStyle.Render(displayName(c.PosterName)),
			subtleStyle.Render(humanize.RelTime(c.CreatedAt, m.now(), "ago", "from now")),
			c.Content))
	}
	if m.commenting {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	return modalStyle.Render(b.String()) + "\n"
}

func likeLabel(st views.State) string {
	switch {
	case !st.Enabled:
		return subtleStyle.Render(fmt.Sprintf("… %d", st.Count))
	case st.Liked:
		return likedStyle.Render(fmt.Sprintf("♥ %d", st.Count))
	default:
		return fmt.Sprintf("♡ %d", st.Count)
	}
}

func renderTags(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, tagStyle.Render("#"+t))
	}
	return strings.Join(parts, " ")
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return views.AnonymousName
	}
	return name
}

// Run starts the program on the terminal.
func Run(ctx context.Context, c *client.Client, toasts Toasts) error {
	_, err := tea.NewProgram(New(ctx, c, toasts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

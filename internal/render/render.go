package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/mmcdole/tadb/internal/domain"
)

const titleWidth = 40

// Printer writes catalog views to w, styled or plain
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter creates a printer. Styling is only worth enabling for a terminal.
func NewPrinter(w io.Writer, styled bool) *Printer {
	return &Printer{w: w, styled: styled}
}

// Detect returns a printer for f, styled when f is a terminal
func Detect(f *os.File) *Printer {
	return NewPrinter(f, term.IsTerminal(int(f.Fd())))
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) println(line string) {
	fmt.Fprintln(p.w, line)
}

// Stats prints the per-data-set record counts
func (p *Printer) Stats(s domain.Stats) {
	rows := []struct {
		label string
		count int
	}{
		{"Posts", s.Posts},
		{"Schedule", s.Schedule},
		{"Creators", s.Creators},
	}
	for _, r := range rows {
		p.println(fmt.Sprintf("%-10s %s", r.label, p.style(AccentStyle, fmt.Sprint(r.count))))
	}
	p.println(fmt.Sprintf("%-10s %s", "Total", p.style(TitleStyle, fmt.Sprint(s.Total))))
}

// Index prints one row per post summary
func (p *Printer) Index(posts []domain.IndexPost) {
	if len(posts) == 0 {
		p.println(p.style(DimStyle, "No posts"))
		return
	}
	for _, post := range posts {
		title := fmt.Sprintf("%-*s", titleWidth, Truncate(post.Title, titleWidth))
		meta := joinNonEmpty(" · ", post.Year, post.Season, post.AirSeason)
		line := fmt.Sprintf("%4d  %s  %s", post.ID, p.style(TitleStyle, title), p.style(SubtitleStyle, meta))
		if tags := p.tags(post.Categories, post.Labels); tags != "" {
			line += "  " + tags
		}
		p.println(line)
	}
}

// Detail prints every field of a post, extended fields in key order
func (p *Printer) Detail(post domain.Post) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", p.style(TitleStyle, post.Title), p.style(DimStyle, fmt.Sprintf("#%d", post.ID)))
	if meta := joinNonEmpty(" · ", post.Year, post.Season, post.AirSeason); meta != "" {
		fmt.Fprintln(&b, p.style(SubtitleStyle, meta))
	}
	if tags := p.tags(post.Categories, post.Labels); tags != "" {
		fmt.Fprintln(&b, tags)
	}
	if post.Poster != "" {
		fmt.Fprintf(&b, "%s %s\n", p.style(DimStyle, "poster:"), post.Poster)
	}

	keys := make([]string, 0, len(post.Extra))
	for k := range post.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %s\n", p.style(DimStyle, k+":"), summarize(post.Extra[k]))
	}

	out := strings.TrimRight(b.String(), "\n")
	if p.styled {
		out = PanelStyle.Render(out)
	}
	p.println(out)
}

// Exports prints the outcome of an export run
func (p *Printer) Exports(files []domain.ExportFile, dir string, err error) {
	for _, f := range files {
		p.println(fmt.Sprintf("  %-15s %6d bytes", f.Filename, f.Size))
	}
	if err != nil {
		p.println(p.style(ErrorStyle, FailChar+" "+err.Error()))
		return
	}
	p.println(p.style(SuccessStyle, OKChar) + " " + p.style(DimStyle, "written to "+dir))
}

// Records prints a data set as indented JSON
func (p *Printer) Records(records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	p.println(string(data))
	return nil
}

// Reset prints the data sets removed from the store
func (p *Printer) Reset(removed []domain.DataType) {
	if len(removed) == 0 {
		p.println(p.style(DimStyle, "Nothing stored"))
		return
	}
	for _, t := range removed {
		p.println(p.style(SuccessStyle, OKChar) + " reset " + string(t))
	}
}

func (p *Printer) tags(categories, labels []string) string {
	parts := make([]string, 0, len(categories)+len(labels))
	for _, c := range categories {
		parts = append(parts, p.badge(BadgeStyle, c))
	}
	for _, l := range labels {
		parts = append(parts, p.badge(DimBadgeStyle, l))
	}
	return strings.Join(parts, " ")
}

func (p *Printer) badge(s lipgloss.Style, text string) string {
	if !p.styled {
		return "[" + text + "]"
	}
	return s.Render(text)
}

// summarize renders an extended field on one line
func summarize(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch val := v.(type) {
	case string:
		return Truncate(val, 120)
	case []any:
		return fmt.Sprintf("%d items", len(val))
	case map[string]any:
		return fmt.Sprintf("%d fields", len(val))
	case nil:
		return "-"
	default:
		return fmt.Sprint(val)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sep)
}

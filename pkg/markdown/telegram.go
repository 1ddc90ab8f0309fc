// Package markdown converts model output into the HTML subset Telegram
// accepts: <b> <i> <s> <code> <pre> <a> <blockquote>. Everything else is
// flattened to plain text.
package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/russross/blackfriday"
)

const extensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
	blackfriday.EXTENSION_FENCED_CODE |
	blackfriday.EXTENSION_AUTOLINK |
	blackfriday.EXTENSION_STRIKETHROUGH

// ToTelegramHTML renders markdown into Telegram-safe HTML.
func ToTelegramHTML(md string) string {
	out := blackfriday.Markdown([]byte(md), &telegramRenderer{}, extensions)
	return strings.TrimSpace(string(out))
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(text []byte) string {
	return htmlEscaper.Replace(string(text))
}

// telegramRenderer implements blackfriday.Renderer for Telegram's tag set.
type telegramRenderer struct {
	listIndex int
	ordered   bool
}

func (r *telegramRenderer) BlockCode(out *bytes.Buffer, text []byte, lang string) {
	out.WriteString("<pre><code")
	if lang != "" {
		out.WriteString(` class="language-` + lang + `"`)
	}
	out.WriteString(">")
	out.WriteString(escape(text))
	out.WriteString("</code></pre>\n")
}

func (r *telegramRenderer) BlockQuote(out *bytes.Buffer, text []byte) {
	out.WriteString("<blockquote>")
	out.Write(bytes.TrimSpace(text))
	out.WriteString("</blockquote>\n\n")
}

func (r *telegramRenderer) BlockHtml(out *bytes.Buffer, text []byte) {
	out.WriteString(escape(bytes.TrimSpace(text)))
	out.WriteString("\n\n")
}

func (r *telegramRenderer) Header(out *bytes.Buffer, text func() bool, level int, id string) {
	marker := out.Len()
	out.WriteString("<b>")
	if !text() {
		out.Truncate(marker)
		return
	}
	out.WriteString("</b>\n\n")
}

func (r *telegramRenderer) HRule(out *bytes.Buffer) {
	out.WriteString("\n")
}

func (r *telegramRenderer) List(out *bytes.Buffer, text func() bool, flags int) {
	marker := out.Len()
	r.ordered = flags&blackfriday.LIST_TYPE_ORDERED != 0
	r.listIndex = 0
	if !text() {
		out.Truncate(marker)
		return
	}
	out.WriteString("\n")
}

func (r *telegramRenderer) ListItem(out *bytes.Buffer, text []byte, flags int) {
	if flags&blackfriday.LIST_ITEM_BEGINNING_OF_LIST != 0 {
		r.listIndex = 0
	}
	r.listIndex++
	if r.ordered {
		out.WriteString(strconv.Itoa(r.listIndex) + ". ")
	} else {
		out.WriteString("• ")
	}
	out.Write(bytes.TrimSpace(text))
	out.WriteString("\n")
}

func (r *telegramRenderer) Paragraph(out *bytes.Buffer, text func() bool) {
	marker := out.Len()
	if !text() {
		out.Truncate(marker)
		return
	}
	out.WriteString("\n\n")
}

func (r *telegramRenderer) Table(out *bytes.Buffer, header []byte, body []byte, columnData []int) {
	out.WriteString("<pre>")
	out.Write(header)
	out.Write(body)
	out.WriteString("</pre>\n\n")
}

func (r *telegramRenderer) TableRow(out *bytes.Buffer, text []byte) {
	out.Write(bytes.TrimRight(text, "\t"))
	out.WriteString("\n")
}

func (r *telegramRenderer) TableHeaderCell(out *bytes.Buffer, text []byte, flags int) {
	out.Write(text)
	out.WriteString("\t")
}

func (r *telegramRenderer) TableCell(out *bytes.Buffer, text []byte, flags int) {
	out.Write(text)
	out.WriteString("\t")
}

func (r *telegramRenderer) Footnotes(out *bytes.Buffer, text func() bool) {
	text()
}

func (r *telegramRenderer) FootnoteItem(out *bytes.Buffer, name, text []byte, flags int) {
	out.Write(text)
}

func (r *telegramRenderer) TitleBlock(out *bytes.Buffer, text []byte) {
	out.WriteString("<b>")
	out.WriteString(escape(bytes.TrimSpace(text)))
	out.WriteString("</b>\n\n")
}

func (r *telegramRenderer) AutoLink(out *bytes.Buffer, link []byte, kind int) {
	href := string(link)
	if kind == blackfriday.LINK_TYPE_EMAIL {
		href = "mailto:" + href
	}
	out.WriteString(`<a href="` + href + `">`)
	out.WriteString(escape(link))
	out.WriteString("</a>")
}

func (r *telegramRenderer) CodeSpan(out *bytes.Buffer, text []byte) {
	out.WriteString("<code>")
	out.WriteString(escape(text))
	out.WriteString("</code>")
}

func (r *telegramRenderer) DoubleEmphasis(out *bytes.Buffer, text []byte) {
	out.WriteString("<b>")
	out.Write(text)
	out.WriteString("</b>")
}

func (r *telegramRenderer) Emphasis(out *bytes.Buffer, text []byte) {
	out.WriteString("<i>")
	out.Write(text)
	out.WriteString("</i>")
}

func (r *telegramRenderer) TripleEmphasis(out *bytes.Buffer, text []byte) {
	out.WriteString("<b><i>")
	out.Write(text)
	out.WriteString("</i></b>")
}

func (r *telegramRenderer) StrikeThrough(out *bytes.Buffer, text []byte) {
	out.WriteString("<s>")
	out.Write(text)
	out.WriteString("</s>")
}

// Image renders as a plain link: Telegram HTML has no inline images, the
// model is told to attach images via the add_image tool instead.
func (r *telegramRenderer) Image(out *bytes.Buffer, link []byte, title []byte, alt []byte) {
	out.WriteString(`<a href="` + string(link) + `">`)
	if len(alt) > 0 {
		out.WriteString(escape(alt))
	} else {
		out.WriteString(escape(link))
	}
	out.WriteString("</a>")
}

func (r *telegramRenderer) LineBreak(out *bytes.Buffer) {
	out.WriteString("\n")
}

func (r *telegramRenderer) Link(out *bytes.Buffer, link []byte, title []byte, content []byte) {
	out.WriteString(`<a href="` + string(link) + `">`)
	out.Write(content)
	out.WriteString("</a>")
}

func (r *telegramRenderer) RawHtmlTag(out *bytes.Buffer, tag []byte) {
	out.WriteString(escape(tag))
}

func (r *telegramRenderer) FootnoteRef(out *bytes.Buffer, ref []byte, id int) {
	out.WriteString(escape(ref))
}

func (r *telegramRenderer) Entity(out *bytes.Buffer, entity []byte) {
	out.Write(entity)
}

func (r *telegramRenderer) NormalText(out *bytes.Buffer, text []byte) {
	out.WriteString(escape(text))
}

func (r *telegramRenderer) DocumentHeader(out *bytes.Buffer) {}

func (r *telegramRenderer) DocumentFooter(out *bytes.Buffer) {}

func (r *telegramRenderer) GetFlags() int { return 0 }

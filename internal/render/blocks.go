package render

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/webcitydotdev/woodwork-site-example/internal/cms"
)

const maxBlockDepth = 16

var allowedTags = map[string]bool{
	"div": true, "section": true, "span": true, "p": true, "a": true,
	"header": true, "footer": true, "main": true, "nav": true, "article": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "figure": true,
}

// BlockView is one rendered node of the editor tree.
type BlockView struct {
	ID       string
	Kind     string
	Open     template.HTML
	Close    template.HTML
	HTML     template.HTML
	Image    *ImageView
	Button   *ButtonView
	Gallery  *GalleryView
	Lightbox *LightboxView
	Carousel *CarouselView
	Children []BlockView
}

// ImageView is the render model for the "Image" component.
type ImageView struct {
	Src   string
	Alt   string
	Lazy  bool
	Style template.CSS
}

// ButtonView is the render model for the "Button" component.
type ButtonView struct {
	Text   string
	Href   string
	NewTab bool
}

// BlockRenderer turns editor blocks into views and collects their responsive CSS.
type BlockRenderer struct {
	policy *bluemonday.Policy
}

// NewBlockRenderer builds a renderer with the rich-text sanitising policy.
func NewBlockRenderer() *BlockRenderer {
	return &BlockRenderer{policy: newTextPolicy()}
}

func newTextPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("figure", "figcaption", "span")
	policy.AllowAttrs("class").OnElements("figure", "figcaption", "p", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// Render converts blocks and returns the CSS for their responsive styles.
func (r *BlockRenderer) Render(blocks []cms.Block) ([]BlockView, template.CSS) {
	var css strings.Builder
	views := r.render(blocks, &css, 0)
	return views, template.CSS(css.String())
}

func (r *BlockRenderer) render(blocks []cms.Block, css *strings.Builder, depth int) []BlockView {
	if depth >= maxBlockDepth || len(blocks) == 0 {
		return nil
	}
	views := make([]BlockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, r.block(b, css, depth))
	}
	return views
}

func (r *BlockRenderer) block(b cms.Block, css *strings.Builder, depth int) BlockView {
	class := blockClass(b.ID)
	css.WriteString(responsiveCSS(class, b.ResponsiveStyles))

	view := BlockView{ID: b.ID, Kind: "box"}
	tag := tagName(b.TagName)
	classes := []string{"builder-block"}
	if class != "" {
		classes = append(classes, class)
	}
	var opts map[string]any
	if b.Component != nil {
		opts = b.Component.Options
	}

	switch b.ComponentName() {
	case "Text":
		view.Kind = "text"
		view.HTML = template.HTML(r.policy.Sanitize(optString(opts, "text", "")))
	case "Image":
		view.Kind = "image"
		if src := safeURL(optString(opts, "image", "")); src != "" {
			view.Image = &ImageView{
				Src:   src,
				Alt:   optString(opts, "altText", ""),
				Lazy:  optBool(opts, "lazy", true),
				Style: imageStyle(opts),
			}
		}
	case "Core:Button", "Button":
		view.Kind = "button"
		view.Button = &ButtonView{
			Text:   optString(opts, "text", ""),
			Href:   safeURL(optString(opts, "link", "")),
			NewTab: optBool(opts, "openLinkInNewTab", false),
		}
	case "Core:Section", "Section":
		view.Kind = "section"
		tag = "section"
		maxWidth := optFloat(opts, "maxWidth", 1200)
		classes = append(classes, "builder-section")
		view.Children = []BlockView{{
			Kind:     "box",
			Open:     openTag("div", []string{"builder-section-inner"}, template.CSS("max-width:"+formatNumber(maxWidth)+"px;margin:0 auto"), ""),
			Close:    closeTag("div"),
			Children: r.render(b.Children, css, depth+1),
		}}
	case "Symbol":
		view.Kind = "symbol"
		if sym := b.Symbol(); sym != nil {
			view.Children = r.render(sym.Data.Blocks, css, depth+1)
		}
	case "Image Gallery":
		view.Kind = "gallery"
		view.Gallery = galleryFromOptions(opts)
	case "Lightbox":
		view.Kind = "lightbox"
		view.Lightbox = lightboxFromOptions(opts)
	case "Testimonial Carousel":
		view.Kind = "carousel"
		view.Carousel = carouselFromOptions(opts)
	}

	if view.Children == nil && view.Kind != "symbol" {
		view.Children = r.render(b.Children, css, depth+1)
	}

	href := ""
	if b.LinkURL != "" {
		if u := safeURL(b.LinkURL); u != "" {
			tag = "a"
			href = u
		}
	}
	for _, extra := range strings.Fields(b.Properties["class"]) {
		if c := blockIDPattern.ReplaceAllString(extra, ""); c != "" {
			classes = append(classes, c)
		}
	}
	view.Open = openTag(tag, classes, "", href)
	view.Close = closeTag(tag)
	return view
}

func imageStyle(opts map[string]any) template.CSS {
	parts := []string{"object-fit:" + cssOr(optString(opts, "backgroundSize", ""), "cover")}
	if pos, ok := cssValue(optString(opts, "backgroundPosition", "")); ok {
		parts = append(parts, "object-position:"+pos)
	}
	// aspect ratio is height over width
	if ratio := optFloat(opts, "aspectRatio", 0); ratio > 0 {
		parts = append(parts, "aspect-ratio:1 / "+formatNumber(ratio))
	}
	return template.CSS(strings.Join(parts, ";"))
}

func tagName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if allowedTags[name] {
		return name
	}
	return "div"
}

func openTag(tag string, classes []string, style template.CSS, href string) template.HTML {
	var b strings.Builder
	b.WriteString("<" + tag)
	if len(classes) > 0 {
		b.WriteString(` class="` + html.EscapeString(strings.Join(classes, " ")) + `"`)
	}
	if style != "" {
		b.WriteString(` style="` + html.EscapeString(string(style)) + `"`)
	}
	if href != "" {
		b.WriteString(` href="` + html.EscapeString(href) + `"`)
	}
	b.WriteString(">")
	return template.HTML(b.String())
}

func closeTag(tag string) template.HTML {
	return template.HTML("</" + tag + ">")
}

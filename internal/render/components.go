package render

import (
	"html/template"
	"strconv"
	"strings"
)

// ImageItem is one gallery or lightbox image.
type ImageItem struct {
	Src string
	Alt string
}

// GallerySettings controls gallery behaviour.
type GallerySettings struct {
	AnimationSpeed float64
	ShowOverlay    bool
	ViewIconSymbol string
	EnableLightbox bool
}

// GalleryStyling controls gallery colours and corner radius.
type GalleryStyling struct {
	BackgroundColor  string
	OverlayColor     string
	OverlayTextColor string
	BorderRadius     float64
}

// DefaultGallerySettings mirrors the editor defaults for "Image Gallery".
func DefaultGallerySettings() GallerySettings {
	return GallerySettings{
		AnimationSpeed: 30,
		ShowOverlay:    true,
		ViewIconSymbol: "+",
		EnableLightbox: true,
	}
}

// DefaultGalleryStyling mirrors the editor styling defaults for "Image Gallery".
func DefaultGalleryStyling() GalleryStyling {
	return GalleryStyling{
		BackgroundColor:  "transparent",
		OverlayColor:     "rgba(0, 0, 0, 0.5)",
		OverlayTextColor: "#ffffff",
		BorderRadius:     8,
	}
}

// GalleryView is the render model for "Image Gallery".
type GalleryView struct {
	Images   []ImageItem
	Settings GallerySettings
	Styling  GalleryStyling
	Lightbox *LightboxView
}

// Style exposes the settings as CSS custom properties.
func (g GalleryView) Style() template.CSS {
	return template.CSS(strings.Join([]string{
		"--animation-speed:" + formatNumber(g.Settings.AnimationSpeed) + "s",
		"--gallery-bg:" + g.Styling.BackgroundColor,
		"--overlay-color:" + g.Styling.OverlayColor,
		"--overlay-text-color:" + g.Styling.OverlayTextColor,
		"--border-radius:" + formatNumber(g.Styling.BorderRadius) + "px",
	}, ";"))
}

// LightboxSettings controls lightbox behaviour.
type LightboxSettings struct {
	EnableKeyboardNavigation bool
	ShowCaption              bool
	ShowCounter              bool
	CloseOnBackdropClick     bool
	NavigationButtonStyle    string
}

// LightboxStyling controls lightbox colours.
type LightboxStyling struct {
	BackdropColor              string
	NavigationButtonColor      string
	NavigationButtonHoverColor string
	CaptionBackgroundColor     string
	CaptionTextColor           string
	CounterBackgroundColor     string
	CounterTextColor           string
}

func DefaultLightboxSettings() LightboxSettings {
	return LightboxSettings{
		EnableKeyboardNavigation: true,
		ShowCaption:              true,
		ShowCounter:              true,
		CloseOnBackdropClick:     true,
		NavigationButtonStyle:    "circular",
	}
}

func DefaultLightboxStyling() LightboxStyling {
	return LightboxStyling{
		BackdropColor:              "rgba(0, 0, 0, 0.9)",
		NavigationButtonColor:      "rgba(0, 0, 0, 0.5)",
		NavigationButtonHoverColor: "rgba(0, 0, 0, 0.8)",
		CaptionBackgroundColor:     "rgba(0, 0, 0, 0.5)",
		CaptionTextColor:           "#ffffff",
		CounterBackgroundColor:     "rgba(0, 0, 0, 0.5)",
		CounterTextColor:           "#ffffff",
	}
}

// LightboxView is the render model for the lightbox dialog.
type LightboxView struct {
	Images       []ImageItem
	CurrentIndex int
	Settings     LightboxSettings
	Styling      LightboxStyling
}

func (l LightboxView) Style() template.CSS {
	s := l.Styling
	return template.CSS(strings.Join([]string{
		"--backdrop-color:" + s.BackdropColor,
		"--nav-button-color:" + s.NavigationButtonColor,
		"--nav-button-hover-color:" + s.NavigationButtonHoverColor,
		"--caption-bg:" + s.CaptionBackgroundColor,
		"--caption-color:" + s.CaptionTextColor,
		"--counter-bg:" + s.CounterBackgroundColor,
		"--counter-color:" + s.CounterTextColor,
	}, ";"))
}

// Counter renders "n / total" for the current image.
func (l LightboxView) Counter() string {
	if len(l.Images) == 0 {
		return ""
	}
	return strconv.Itoa(l.CurrentIndex+1) + " / " + strconv.Itoa(len(l.Images))
}

// Testimonial is one carousel slide.
type Testimonial struct {
	Text        string
	ClientName  string
	ClientTitle string
	ClientImage string
}

// CarouselView is the render model for "Testimonial Carousel".
type CarouselView struct {
	Title           string
	Description     string
	Testimonials    []Testimonial
	TextColor       string
	ButtonColor     string
	BackgroundColor string
	Autoplay        bool
	AutoplaySpeed   int
}

// DefaultCarousel holds the carousel defaults applied to missing props.
func DefaultCarousel() CarouselView {
	return CarouselView{
		TextColor:       "#000000",
		ButtonColor:     "#000000",
		BackgroundColor: "#ffffff",
		Autoplay:        true,
		AutoplaySpeed:   5000,
	}
}

func (c CarouselView) Style() template.CSS {
	return template.CSS("color:" + c.TextColor + ";background-color:" + c.BackgroundColor + ";--button-color:" + c.ButtonColor)
}

func galleryFromOptions(opts map[string]any) *GalleryView {
	g := &GalleryView{
		Images:   imagesFromOptions(opts),
		Settings: DefaultGallerySettings(),
		Styling:  DefaultGalleryStyling(),
	}
	if s := optMap(opts, "gallerySettings"); s != nil {
		g.Settings.AnimationSpeed = clamp(optFloat(s, "animationSpeed", g.Settings.AnimationSpeed), 10, 60)
		g.Settings.ShowOverlay = optBool(s, "showOverlay", g.Settings.ShowOverlay)
		g.Settings.ViewIconSymbol = optString(s, "viewIconSymbol", g.Settings.ViewIconSymbol)
		g.Settings.EnableLightbox = optBool(s, "enableLightbox", g.Settings.EnableLightbox)
	}
	if s := optMap(opts, "styling"); s != nil {
		g.Styling.BackgroundColor = cssOr(optString(s, "backgroundColor", ""), g.Styling.BackgroundColor)
		g.Styling.OverlayColor = cssOr(optString(s, "overlayColor", ""), g.Styling.OverlayColor)
		g.Styling.OverlayTextColor = cssOr(optString(s, "overlayTextColor", ""), g.Styling.OverlayTextColor)
		g.Styling.BorderRadius = clamp(optFloat(s, "borderRadius", g.Styling.BorderRadius), 0, 50)
	}
	if g.Settings.EnableLightbox {
		g.Lightbox = &LightboxView{
			Images:   g.Images,
			Settings: DefaultLightboxSettings(),
			Styling:  DefaultLightboxStyling(),
		}
	}
	return g
}

func lightboxFromOptions(opts map[string]any) *LightboxView {
	l := &LightboxView{
		Images:   imagesFromOptions(opts),
		Settings: DefaultLightboxSettings(),
		Styling:  DefaultLightboxStyling(),
	}
	idx := int(optFloat(opts, "currentIndex", 0))
	if idx < 0 || idx >= len(l.Images) {
		idx = 0
	}
	l.CurrentIndex = idx
	if s := optMap(opts, "lightboxSettings"); s != nil {
		l.Settings.EnableKeyboardNavigation = optBool(s, "enableKeyboardNavigation", l.Settings.EnableKeyboardNavigation)
		l.Settings.ShowCaption = optBool(s, "showCaption", l.Settings.ShowCaption)
		l.Settings.ShowCounter = optBool(s, "showCounter", l.Settings.ShowCounter)
		l.Settings.CloseOnBackdropClick = optBool(s, "closeOnBackdropClick", l.Settings.CloseOnBackdropClick)
		switch style := optString(s, "navigationButtonStyle", ""); style {
		case "circular", "rectangular", "minimal":
			l.Settings.NavigationButtonStyle = style
		}
	}
	if s := optMap(opts, "styling"); s != nil {
		st := &l.Styling
		st.BackdropColor = cssOr(optString(s, "backdropColor", ""), st.BackdropColor)
		st.NavigationButtonColor = cssOr(optString(s, "navigationButtonColor", ""), st.NavigationButtonColor)
		st.NavigationButtonHoverColor = cssOr(optString(s, "navigationButtonHoverColor", ""), st.NavigationButtonHoverColor)
		st.CaptionBackgroundColor = cssOr(optString(s, "captionBackgroundColor", ""), st.CaptionBackgroundColor)
		st.CaptionTextColor = cssOr(optString(s, "captionTextColor", ""), st.CaptionTextColor)
		st.CounterBackgroundColor = cssOr(optString(s, "counterBackgroundColor", ""), st.CounterBackgroundColor)
		st.CounterTextColor = cssOr(optString(s, "counterTextColor", ""), st.CounterTextColor)
	}
	return l
}

func carouselFromOptions(opts map[string]any) *CarouselView {
	c := DefaultCarousel()
	c.Title = optString(opts, "title", "")
	c.Description = optString(opts, "description", "")
	c.TextColor = cssOr(optString(opts, "textColor", ""), c.TextColor)
	c.ButtonColor = cssOr(optString(opts, "buttonColor", ""), c.ButtonColor)
	c.BackgroundColor = cssOr(optString(opts, "backgroundColor", ""), c.BackgroundColor)
	c.Autoplay = optBool(opts, "autoplay", c.Autoplay)
	if speed := int(optFloat(opts, "autoplaySpeed", 0)); speed > 0 {
		c.AutoplaySpeed = speed
	}
	for _, item := range optList(opts, "testimonials") {
		t := Testimonial{
			Text:        optString(item, "text", ""),
			ClientName:  optString(item, "clientName", ""),
			ClientTitle: optString(item, "clientTitle", ""),
			ClientImage: safeURL(optString(item, "clientImage", "")),
		}
		if t.Text == "" && t.ClientName == "" {
			continue
		}
		c.Testimonials = append(c.Testimonials, t)
	}
	return &c
}

func imagesFromOptions(opts map[string]any) []ImageItem {
	var images []ImageItem
	for _, item := range optList(opts, "images") {
		src := safeURL(optString(item, "src", ""))
		if src == "" {
			continue
		}
		images = append(images, ImageItem{Src: src, Alt: optString(item, "alt", "")})
	}
	return images
}

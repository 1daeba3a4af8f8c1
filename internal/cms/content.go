package cms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content is a single CMS entry. The typed fields cover what the site renders;
// Raw keeps the full document for consumer-defined fields.
type Content struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ModelID     string `json:"modelId"`
	Published   string `json:"published"`
	LastUpdated int64  `json:"lastUpdated"`
	Data        Data   `json:"data"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and retains the raw document.
func (c *Content) UnmarshalJSON(b []byte) error {
	type alias Content
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = Content(a)
	c.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON emits the raw document when available.
func (c *Content) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	type alias Content
	return json.Marshal((*alias)(c))
}

// Title prefers the data title and falls back to the entry name.
func (c *Content) Title() string {
	if c == nil {
		return ""
	}
	if t := strings.TrimSpace(c.Data.Title); t != "" {
		return t
	}
	return strings.TrimSpace(c.Name)
}

// Data is the model payload of an entry.
type Data struct {
	Title  string                     `json:"title,omitempty"`
	URL    string                     `json:"url,omitempty"`
	Blocks []Block                    `json:"blocks,omitempty"`
	Extra  map[string]json.RawMessage `json:"-"`
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*d = Data{}
	if raw, ok := fields["title"]; ok {
		_ = json.Unmarshal(raw, &d.Title)
		delete(fields, "title")
	}
	if raw, ok := fields["url"]; ok {
		// url targeting is either a single path or a list of paths
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			d.URL = single
		} else {
			var many []string
			if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
				d.URL = many[0]
			}
		}
		delete(fields, "url")
	}
	if raw, ok := fields["blocks"]; ok {
		if err := json.Unmarshal(raw, &d.Blocks); err != nil {
			return fmt.Errorf("cms: decode blocks: %w", err)
		}
		delete(fields, "blocks")
	}
	if len(fields) > 0 {
		d.Extra = fields
	}
	return nil
}

// String returns a string-valued extra field.
func (d Data) String(key string) string {
	raw, ok := d.Extra[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Block is one node of the visual editor tree.
type Block struct {
	ID               string            `json:"id"`
	TagName          string            `json:"tagName,omitempty"`
	Component        *Component        `json:"component,omitempty"`
	Children         []Block           `json:"children,omitempty"`
	ResponsiveStyles ResponsiveStyles  `json:"responsiveStyles"`
	Properties       map[string]string `json:"properties,omitempty"`
	LinkURL          string            `json:"linkUrl,omitempty"`
}

// Component names the registered component and its editor-supplied props.
type Component struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// ResponsiveStyles holds CSS declarations per breakpoint.
type ResponsiveStyles struct {
	Large  map[string]string `json:"large,omitempty"`
	Medium map[string]string `json:"medium,omitempty"`
	Small  map[string]string `json:"small,omitempty"`
}

// ComponentName returns the block's component name or "".
func (b Block) ComponentName() string {
	if b.Component == nil {
		return ""
	}
	return b.Component.Name
}

// Symbol returns the referenced entry inlined by includeRefs, if any.
func (b Block) Symbol() *Content {
	if b.ComponentName() != "Symbol" {
		return nil
	}
	symbol, _ := b.Component.Options["symbol"].(map[string]any)
	inner, ok := symbol["content"]
	if !ok || inner == nil {
		return nil
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil
	}
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil
	}
	return &content
}
